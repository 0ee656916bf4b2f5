package prepush

import (
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Test helpers - exported for testing only

// ResolveRefOrSHAForTesting exposes resolveRefOrSHA for testing.
func (r *Runner) ResolveRefOrSHAForTesting(refOrSHA string) (*object.Commit, error) {
	return r.resolveRefOrSHA(refOrSHA)
}

// ShouldSkipAuthorForTesting exposes shouldSkipAuthor for testing.
func (r *Runner) ShouldSkipAuthorForTesting(name string, email string) bool {
	return r.shouldSkipAuthor(name, email)
}
