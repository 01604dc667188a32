// Package storage keeps uploaded files under the media root.
package storage

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
)

// UploadDir is the directory, relative to the media root, that post images
// are written to.
const UploadDir = "posts"

const maxNameLength = 100

var unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// MediaStore writes files below Root and hands out references relative to it.
type MediaStore struct {
	Root string
}

func NewMediaStore(root string) *MediaStore {
	return &MediaStore{Root: root}
}

// Save writes r as UploadDir/<name>. When the name is taken a random suffix
// is added before the extension. The returned reference is slash separated
// and relative to Root.
func (m *MediaStore) Save(name string, r io.Reader) (string, error) {
	dir := filepath.Join(m.Root, UploadDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create upload dir")
	}

	name = cleanName(name)
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for attempt := 0; ; attempt++ {
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			if _, err := io.Copy(f, r); err != nil {
				f.Close()
				os.Remove(f.Name())
				return "", errors.Wrapf(err, "write %s", candidate)
			}
			if err := f.Close(); err != nil {
				return "", errors.Wrapf(err, "close %s", candidate)
			}
			return path.Join(UploadDir, candidate), nil
		}
		if !os.IsExist(err) || attempt >= 10 {
			return "", errors.Wrapf(err, "create %s", candidate)
		}
		candidate = stem + "_" + shortuuid.New()[:7] + ext
	}
}

// Open returns the file behind a reference produced by Save.
func (m *MediaStore) Open(ref string) (*os.File, error) {
	f, err := os.Open(m.Path(ref))
	if err != nil {
		return nil, errors.Wrapf(err, "open media %s", ref)
	}
	return f, nil
}

// Path maps a reference onto the filesystem.
func (m *MediaStore) Path(ref string) string {
	return filepath.Join(m.Root, filepath.FromSlash(path.Clean("/" + ref)))
}

// Delete removes a stored file; a missing file is not an error.
func (m *MediaStore) Delete(ref string) error {
	if ref == "" {
		return nil
	}
	if err := os.Remove(m.Path(ref)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete media %s", ref)
	}
	return nil
}

// cleanName keeps the base name of an upload and drops characters that do
// not belong in a file name.
func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(name)
	name = unsafeChars.ReplaceAllString(strings.ReplaceAll(name, " ", "_"), "")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = "upload"
	}

	// leave room for UploadDir and a collision suffix
	limit := maxNameLength - len(UploadDir) - 1 - 8
	if runes := []rune(name); len(runes) > limit {
		ext := []rune(path.Ext(name))
		if len(ext) > 10 {
			ext = nil
		}
		name = string(runes[:limit-len(ext)]) + string(ext)
	}
	return name
}
