package fetcher

import "fmt"

// A transient network failure that exhausted its retry budget, or a
// tool that can not be downloaded at all.
type DownloadError struct {
	Tool string
	Url  string
	Err  error
}

func (self *DownloadError) Error() string {
	return fmt.Sprintf("DownloadError: tool %v from %v: %v",
		self.Tool, self.Url, self.Err)
}

func (self *DownloadError) Unwrap() error {
	return self.Err
}
