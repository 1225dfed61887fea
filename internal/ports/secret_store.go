package ports

import (
	"context"
	"strings"
)

type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// SecretPath turns a "scheme://rest" secret reference into the relative
// "scheme/rest" path used by path-based backends. Plain keys pass through.
func SecretPath(ref string) string {
	scheme, rest, ok := strings.Cut(ref, "://")
	if !ok {
		return ref
	}

	return scheme + "/" + strings.TrimLeft(rest, "/")
}
