// Package filename derives the remote storage path that binds the metadata
// call to the uploaded attachment.
package filename

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DefaultExtension is used when the original file has no extension.
const DefaultExtension = "jpg"

// ErrInvalidUserPhone is returned when the submitter phone has fewer than
// four digits.
var ErrInvalidUserPhone = errors.New("filename: user phone must contain at least 4 digits")

// Build returns "YYYYMMDD/<last4>_YYYYMMDDHHmmssmmm.<ext>" for the given
// instant, rendered in now's location. userPhone is the submitter's own
// registered number, not the complained-about one.
func Build(userPhone, ext string, now time.Time) (string, error) {
	last4, err := lastFourDigits(userPhone)
	if err != nil {
		return "", err
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = DefaultExtension
	}
	ms := now.Nanosecond() / int(time.Millisecond)
	return fmt.Sprintf("%s/%s_%s%03d.%s",
		now.Format("20060102"),
		last4,
		now.Format("20060102150405"),
		ms,
		ext,
	), nil
}

// ExtensionOf returns the extension of the original file name without the
// dot, as written. A name without one yields DefaultExtension.
func ExtensionOf(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(filepath.Base(name)), ".")
	if ext == "" {
		return DefaultExtension
	}
	return ext
}

func lastFourDigits(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 4 {
		return "", fmt.Errorf("%w: got %d", ErrInvalidUserPhone, len(digits))
	}
	return digits[len(digits)-4:], nil
}
