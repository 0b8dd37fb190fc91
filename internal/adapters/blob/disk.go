package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	perr "timecapsule/internal/platform/errors"
)

// Disk writes blobs under a root directory
type Disk struct {
	root      string
	publicURL string
}

// NewDisk creates the root directory if needed
func NewDisk(root, publicURL string) (*Disk, error) {
	if strings.TrimSpace(root) == "" {
		return nil, perr.BadInputf("blob: disk root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, perr.Storage(err, "blob: create disk root")
	}
	if publicURL == "" {
		publicURL = "file://" + filepath.ToSlash(root)
	}
	return &Disk{root: root, publicURL: publicURL}, nil
}

// Put streams body to a temp file and renames it into place
func (d *Disk) Put(ctx context.Context, folder, name, contentType string, body io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	key := newKey(folder, name)
	dst := filepath.Join(d.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Object{}, perr.Storage(err, "blob: create folder")
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return Object{}, perr.Storage(err, "blob: create temp file")
	}
	defer os.Remove(tmp.Name())

	dg := newDigester()
	if _, err := io.Copy(io.MultiWriter(tmp, dg), body); err != nil {
		_ = tmp.Close()
		return Object{}, perr.Storage(err, "blob: write")
	}
	if err := tmp.Close(); err != nil {
		return Object{}, perr.Storage(err, "blob: close")
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return Object{}, perr.Storage(err, "blob: rename")
	}

	return Object{
		Key:         key,
		URL:         joinURL(d.publicURL, key),
		ContentType: contentType,
		Size:        dg.n,
		Checksum:    dg.Sum(),
	}, nil
}

// Delete removes key; a missing file is not an error
func (d *Disk) Delete(_ context.Context, key string) error {
	p := filepath.Join(d.root, filepath.FromSlash(key))
	if rel, err := filepath.Rel(d.root, p); err != nil || strings.HasPrefix(rel, "..") {
		return perr.BadInputf("blob: key %q escapes root", key)
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return perr.Storage(err, "blob: delete")
	}
	return nil
}
