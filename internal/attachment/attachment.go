// Package attachment loads the supporting document image sent with a plea.
package attachment

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// MaxSize is the largest attachment the service accepts.
const MaxSize int64 = 10 << 20

const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
)

var (
	// ErrTooLarge is returned for files over MaxSize.
	ErrTooLarge = fmt.Errorf("attachment: file must not exceed %s", humanize.IBytes(uint64(MaxSize)))
	// ErrUnsupportedType is returned for anything other than JPEG or PNG.
	ErrUnsupportedType = errors.New("attachment: only JPEG and PNG images are accepted")
)

// Attachment is a single in-memory image. Name is the original base name;
// the stored name on the server is the derived filename sent separately.
type Attachment struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// New wraps data already in memory and detects its content type.
func New(name string, data []byte) *Attachment {
	return &Attachment{
		Name:        filepath.Base(name),
		ContentType: mimetype.Detect(data).String(),
		Size:        int64(len(data)),
		Data:        data,
	}
}

// Load reads path from disk. The size limit is enforced before the content
// is read so oversized files are never buffered.
func Load(path string) (*Attachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("attachment: open: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("attachment: stat: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("attachment: %s is a directory", path)
	}
	if info.Size() > MaxSize {
		return nil, fmt.Errorf("%w: got %s", ErrTooLarge, humanize.IBytes(uint64(info.Size())))
	}

	data, err := io.ReadAll(io.LimitReader(f, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("attachment: read: %w", err)
	}
	return New(path, data), nil
}

// IsAcceptedImage reports whether the detected type is JPEG or PNG.
func (a *Attachment) IsAcceptedImage() bool {
	if a == nil {
		return false
	}
	return mimetype.EqualsAny(a.ContentType, MIMEJPEG, MIMEPNG)
}

// Check returns the first reason the attachment cannot be submitted.
func (a *Attachment) Check() error {
	if a == nil {
		return errors.New("attachment: missing")
	}
	if !a.IsAcceptedImage() {
		return fmt.Errorf("%w: got %s", ErrUnsupportedType, a.ContentType)
	}
	if a.Size > MaxSize {
		return fmt.Errorf("%w: got %s", ErrTooLarge, humanize.IBytes(uint64(a.Size)))
	}
	return nil
}
