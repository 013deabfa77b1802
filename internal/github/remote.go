package github

import (
	"fmt"
	"strings"
)

// RepoInfo contains parsed information from a git remote URL
type RepoInfo struct {
	Hostname string
	Owner    string
	Repo     string
}

// ParseGitHubRemoteURL parses a git remote URL and extracts hostname, owner, and repo.
// Supports both github.com and GitHub Enterprise URLs:
//   - https://github.com/owner/repo.git
//   - git@github.com:owner/repo.git
//   - ssh://git@github.company.com/owner/repo.git
func ParseGitHubRemoteURL(remoteURL string) (*RepoInfo, error) {
	remoteURL = strings.TrimSpace(remoteURL)
	remoteURL = strings.TrimSuffix(remoteURL, "/")
	remoteURL = strings.TrimSuffix(remoteURL, ".git")
	remoteURL = strings.TrimPrefix(remoteURL, "ssh://")

	var hostname, path string
	if at := strings.Index(remoteURL, "@"); at >= 0 && !strings.Contains(remoteURL[:at], "/") {
		hostAndPath := remoteURL[at+1:]
		sep := strings.IndexAny(hostAndPath, ":/")
		if sep < 0 {
			return nil, fmt.Errorf("invalid SSH remote URL %q: missing path", remoteURL)
		}
		hostname = hostAndPath[:sep]
		path = hostAndPath[sep+1:]
	} else {
		remoteURL = strings.TrimPrefix(remoteURL, "https://")
		remoteURL = strings.TrimPrefix(remoteURL, "http://")
		slash := strings.Index(remoteURL, "/")
		if slash < 0 {
			return nil, fmt.Errorf("invalid HTTPS remote URL %q: must be protocol://hostname/owner/repo", remoteURL)
		}
		hostname = remoteURL[:slash]
		if at := strings.LastIndex(hostname, "@"); at >= 0 {
			hostname = hostname[at+1:]
		}
		path = remoteURL[slash+1:]
	}

	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid remote URL %q: path must be owner/repo", remoteURL)
	}
	info := &RepoInfo{
		Hostname: hostname,
		Owner:    parts[len(parts)-2],
		Repo:     parts[len(parts)-1],
	}
	if info.Hostname == "" || info.Owner == "" || info.Repo == "" {
		return nil, fmt.Errorf("failed to parse hostname, owner, or repo from remote URL %q", remoteURL)
	}
	return info, nil
}
