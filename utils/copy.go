package utils

import (
	"context"
	"io"
	"sync"

	errors "github.com/go-errors/errors"
)

var (
	pool = sync.Pool{
		New: func() interface{} {
			buffer := make([]byte, 1024*1024)
			return &buffer
		},
	}
)

// If we reach the limit signal this as an error!
func ReadAllWithLimit(fd io.Reader, limit int64) ([]byte, error) {
	res, err := io.ReadAll(io.LimitReader(fd, limit))
	if int64(len(res)) >= limit {
		return nil, errors.New("Memory buffer exceeded")
	}

	return res, err
}

// An io.Copy() that respects context cancellations.
func Copy(ctx context.Context, dst io.Writer, src io.Reader) (n int, err error) {
	offset := 0
	buff := pool.Get().(*[]byte)
	defer pool.Put(buff)

	for {
		select {
		case <-ctx.Done():
			// A partial copy must never look like success - the
			// caller would otherwise ship truncated bytes.
			return offset, ctx.Err()

		default:
			n, err = src.Read(*buff)
			if err != nil && err != io.EOF {
				return offset, err
			}

			if n == 0 {
				return offset, nil
			}

			_, err = dst.Write((*buff)[:n])
			if err != nil {
				return offset, err
			}
			offset += n
		}
	}
}
