package utils_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"www.velocidex.com/golang/packrat/utils"
)

// A reader that cancels the context after handing out its first
// chunk, simulating an interrupt arriving mid copy.
type cancellingReader struct {
	cancel context.CancelFunc
	chunks []string
}

func (self *cancellingReader) Read(p []byte) (int, error) {
	if len(self.chunks) == 0 {
		return 0, io.EOF
	}

	chunk := self.chunks[0]
	self.chunks = self.chunks[1:]

	n := copy(p, chunk)
	self.cancel()
	return n, nil
}

func TestCopyComplete(t *testing.T) {
	buf := &bytes.Buffer{}
	n, err := utils.Copy(context.Background(),
		buf, bytes.NewReader([]byte("some data")))
	assert.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, "some data", buf.String())
}

func TestCopyPropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &cancellingReader{
		cancel: cancel,
		chunks: []string{"first chunk", "second chunk"},
	}

	buf := &bytes.Buffer{}
	n, err := utils.Copy(ctx, buf, src)

	// The truncated copy is reported as an error, never as success.
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, len("first chunk"), n)
	assert.Equal(t, "first chunk", buf.String())
}
