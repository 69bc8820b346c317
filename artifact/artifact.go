// Package artifact writes rendered charts to disk as PNG files.
package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

var (
	// ErrIO wraps filesystem failures: directory creation, write, chmod.
	ErrIO = errors.New("io error")
	// ErrEncode wraps PNG encoder failures.
	ErrEncode = errors.New("encode error")
)

// FileMode is the permission set on written images.
const FileMode = 0o644

// Write encodes img as PNG and stores it at path, creating missing parent
// directories. The file is replaced atomically; identical images produce
// identical files.
func Write(img image.Image, path string) error {
	var buf bytes.Buffer

	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return fmt.Errorf("%w: encode png: %v", ErrEncode, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create dir for %s: %v", ErrIO, path, err)
	}

	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrIO, path, err)
	}

	// atomic.WriteFile keeps the temp file's mode for new files.
	if err := os.Chmod(path, FileMode); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", ErrIO, path, err)
	}

	return nil
}
