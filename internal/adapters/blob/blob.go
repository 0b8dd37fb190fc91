// Package blob stores capsule media bytes in object storage
//
// Drivers: s3 (any S3 compatible endpoint) and disk (local development)
// Every object is digested with BLAKE3 while it is written
package blob

import (
	"context"
	"encoding/hex"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// RootFolder prefixes every object key
const RootFolder = "digital-time-capsule"

// Object describes a stored blob
type Object struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
	Checksum    string
}

// Store is the object storage port used by the capsules service
type Store interface {
	Put(ctx context.Context, folder, name, contentType string, body io.Reader) (Object, error)
	Delete(ctx context.Context, key string) error
}

// newKey builds "digital-time-capsule/<folder>/<uuid><ext>"
// the client file name only contributes a sanitised extension
func newKey(folder, name string) string {
	return path.Join(RootFolder, folder, uuid.NewString()+ext(name))
}

func ext(name string) string {
	e := strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
	if len(e) < 2 || len(e) > 8 {
		return ""
	}
	for _, r := range e[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return e
}

// digester counts and hashes everything written through it
type digester struct {
	h *blake3.Hasher
	n int64
}

func newDigester() *digester { return &digester{h: blake3.New()} }

func (d *digester) Write(p []byte) (int, error) {
	d.n += int64(len(p))
	return d.h.Write(p)
}

func (d *digester) Sum() string { return hex.EncodeToString(d.h.Sum(nil)) }

// Checksum returns the hex BLAKE3 digest and length of r
func Checksum(r io.Reader) (string, int64, error) {
	d := newDigester()
	if _, err := io.Copy(d, r); err != nil {
		return "", 0, err
	}
	return d.Sum(), d.n, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
