// Package git is the version-control backend for stackit.
//
// Reads (references, branch heads, blobs) go through go-git against the
// on-disk repository. Every mutation (rebase, update-ref, push, checkout)
// shells out to the git CLI through CommandRunner so that hooks, the
// index and the working tree behave exactly as they do for the user.
package git
