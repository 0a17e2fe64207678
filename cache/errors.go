package cache

import (
	"fmt"

	errors "github.com/go-errors/errors"
)

var (
	NotFoundError = errors.New("Not Found")
)

// The content we have does not hash to what the artifact definition
// promised. This either means a compromised or stale mirror, or a
// wrong manifest entry - both need a human, so this error is never
// retried and never masked.
type HashMismatchError struct {
	Tool     string
	Url      string
	Expected string
	Actual   string
}

func (self *HashMismatchError) Error() string {
	return fmt.Sprintf(
		"HashMismatchError: tool %v from %v: expected sha256 %v but content hashes to %v",
		self.Tool, self.Url, self.Expected, self.Actual)
}
