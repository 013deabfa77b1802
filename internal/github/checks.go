package github

import (
	"strings"

	"github.com/google/go-github/v62/github"
)

// CheckState maps one check-run or commit status result onto a CIStatus
func CheckState(state string) CIStatus {
	switch strings.ToLower(state) {
	case "success", "neutral", "skipped":
		return CISuccess
	case "pending", "queued", "in_progress", "waiting", "requested", "expected":
		return CIPending
	case "failure", "error", "cancelled", "canceled", "timed_out", "action_required", "startup_failure", "stale":
		return CIFailure
	default:
		return CINone
	}
}

// combineCI folds check runs and legacy commit statuses into one result:
// any failure fails, else any pending is pending, else success when anything ran
func combineCI(runs []*github.CheckRun, combined *github.CombinedStatus) CIStatus {
	var states []CIStatus
	for _, run := range runs {
		if run.GetStatus() != "completed" {
			states = append(states, CheckState(run.GetStatus()))
			continue
		}
		states = append(states, CheckState(run.GetConclusion()))
	}
	if combined != nil {
		for _, status := range combined.Statuses {
			states = append(states, CheckState(status.GetState()))
		}
	}
	return reduceCI(states)
}

func reduceCI(states []CIStatus) CIStatus {
	result := CINone
	for _, s := range states {
		switch s {
		case CIFailure:
			return CIFailure
		case CIPending:
			result = CIPending
		case CISuccess:
			if result == CINone {
				result = CISuccess
			}
		}
	}
	return result
}
