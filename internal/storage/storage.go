// Package storage keeps uploaded images in named buckets on local disk,
// served back under /media/<bucket>/<path>.
package storage

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	BucketPrescriptions = "prescription-images"
	BucketProducts      = "product-images"

	MaxProductImage      = 2 << 20
	MaxPrescriptionImage = 5 << 20
)

var (
	ErrTooLarge      = errors.New("file too large")
	ErrNotImage      = errors.New("only JPEG, PNG or WebP images are accepted")
	ErrUnknownBucket = errors.New("unknown bucket")
)

var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type Local struct {
	root    string
	buckets map[string]bool
}

// NewLocal creates the bucket directories under root.
func NewLocal(root string, buckets ...string) (*Local, error) {
	if len(buckets) == 0 {
		buckets = []string{BucketPrescriptions, BucketProducts}
	}
	l := &Local{root: root, buckets: map[string]bool{}}
	for _, b := range buckets {
		if err := os.MkdirAll(filepath.Join(root, b), 0o755); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", b, err)
		}
		l.buckets[b] = true
	}
	return l, nil
}

// Upload stores r under a generated path inside prefix (usually the owner's
// id) and returns that path relative to the bucket.
func (l *Local) Upload(bucket, prefix string, r io.Reader, max int64) (string, error) {
	if !l.buckets[bucket] {
		return "", ErrUnknownBucket
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > max {
		return "", ErrTooLarge
	}
	ext, ok := allowed[http.DetectContentType(data)]
	if !ok {
		return "", ErrNotImage
	}

	rel := uuid.NewString() + ext
	if prefix = sanitize(prefix); prefix != "" {
		rel = prefix + "/" + rel
	}
	full := filepath.Join(l.root, bucket, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return rel, nil
}

func (l *Local) PublicURL(bucket, path string) string {
	return "/media/" + bucket + "/" + path
}

// sanitize keeps prefixes to one safe path segment.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, s)
}
