package packager

import (
	"fmt"
	"strings"
)

// An internal invariant was violated at assembly time: the resolved
// tool set and the supplied cache entries disagree. A correct fetch
// phase makes this unreachable, so when it happens we surface it
// loudly rather than skip anything.
type PackageIntegrityError struct {
	Message string
	Tools   []string
}

func (self *PackageIntegrityError) Error() string {
	if len(self.Tools) == 0 {
		return fmt.Sprintf("PackageIntegrityError: %v", self.Message)
	}
	return fmt.Sprintf("PackageIntegrityError: %v: %v",
		self.Message, strings.Join(self.Tools, ", "))
}
