// Package metadata is the durable local key/value store of the client. The
// session keeps the signed-in identity here so it survives restarts.
package metadata

import (
	"context"
)

// Repository stores string values under string keys. Read reports absence
// with ok == false and a nil error.
type Repository interface {
	Read(ctx context.Context, key string) (value string, ok bool, err error)
	Write(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
	Clear(ctx context.Context) error
}
