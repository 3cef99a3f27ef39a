package attachment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}
)

func TestNewDetectsImageTypes(t *testing.T) {
	png := New("/tmp/scan.png", pngHeader)
	assert.Equal(t, "scan.png", png.Name)
	assert.Equal(t, MIMEPNG, png.ContentType)
	assert.True(t, png.IsAcceptedImage())
	assert.NoError(t, png.Check())

	jpg := New("license.jpg", jpegHeader)
	assert.Equal(t, MIMEJPEG, jpg.ContentType)
	assert.NoError(t, jpg.Check())
}

func TestCheckRejectsNonImages(t *testing.T) {
	doc := New("license.jpg", []byte("%PDF-1.4 not an image"))
	assert.False(t, doc.IsAcceptedImage())
	assert.ErrorIs(t, doc.Check(), ErrUnsupportedType)

	var missing *Attachment
	assert.False(t, missing.IsAcceptedImage())
	assert.Error(t, missing.Check())
}

func TestCheckRejectsOversized(t *testing.T) {
	a := New("big.png", pngHeader)
	a.Size = MaxSize + 1
	assert.ErrorIs(t, a.Check(), ErrTooLarge)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "license.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o600))

	a, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "license.png", a.Name)
	assert.Equal(t, int64(len(pngHeader)), a.Size)
	assert.Equal(t, pngHeader, a.Data)
	assert.NoError(t, a.Check())
}

func TestLoadRejectsOversizedWithoutReading(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(MaxSize+1))
	require.NoError(t, f.Close())

	_, err = Load(path)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.jpg"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
