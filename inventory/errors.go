package inventory

import "fmt"

// Two artifacts disagree about what a tool identifier means. This is
// a definition error - there is no safe way to pick a winner so we
// refuse to build an index at all.
type ConflictError struct {
	Tool           string
	FirstArtifact  string
	SecondArtifact string
}

func (self *ConflictError) Error() string {
	return fmt.Sprintf(
		"ConflictError: tool %v is declared with divergent url/hash by artifacts %v and %v",
		self.Tool, self.FirstArtifact, self.SecondArtifact)
}

type UnknownArtifactError struct {
	Name string
}

func (self *UnknownArtifactError) Error() string {
	return fmt.Sprintf("UnknownArtifactError: artifact %v is not known",
		self.Name)
}
