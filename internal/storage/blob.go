package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/gosimple/slug"
)

var ErrInvalidKey = errors.New("storage: invalid key")

// BlobStore keeps exported asset files.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error) // returns canonical key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	URL(key string) (string, error) // fs returns "file://..."
}

// Key builds a portable blob key "<prefix>/<slug>/<slug>.<ext>" for an asset.
// Each part is slugged; parts that slug to nothing fall back to a short hash
// of the original text so distinct names stay distinct.
func Key(prefix, group, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	name := strings.TrimSuffix(filename, path.Ext(filename))
	return path.Join(part(prefix), part(group), part(name)+ext)
}

func part(s string) string {
	if p := slug.Make(s); p != "" {
		return p
	}
	sum := sha1.Sum([]byte(s))
	return "x-" + hex.EncodeToString(sum[:4])
}
