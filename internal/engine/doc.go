// Package engine manages the state and relationships of stacked branches.
//
// It is responsible for:
//   - Storing and retrieving branch metadata (parent, stamped parent revision, PR reference)
//   - Building the stack forest from that metadata
//   - Restacking a single branch onto its parent's current head
//   - Computing read-only status for the listing
//
// Metadata lives in git refs under refs/stackit/metadata/, one JSON blob per
// tracked branch. Multi-branch operations and transactions are layered on top
// by the actions package.
package engine
