package ports

import (
	"context"
	"io"
)

// ObjectStorage stores attachment bytes. Upload returns the stored location.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}
