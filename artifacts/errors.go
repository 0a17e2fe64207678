package artifacts

import "fmt"

// A ParseError identifies the specific field which made an artifact
// definition unacceptable. Parse errors are definitional - they are
// never retried and abort the build before any resolution happens.
type ParseError struct {
	Artifact string
	Field    string
	Message  string
}

func (self *ParseError) Error() string {
	if self.Artifact == "" {
		return fmt.Sprintf("ParseError: field %v: %v",
			self.Field, self.Message)
	}
	return fmt.Sprintf("ParseError: artifact %v: field %v: %v",
		self.Artifact, self.Field, self.Message)
}

func newParseError(artifact, field, format string,
	args ...interface{}) *ParseError {
	return &ParseError{
		Artifact: artifact,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	}
}
