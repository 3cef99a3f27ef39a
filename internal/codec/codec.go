// Package codec implements the Base64 layer shared with the plea service.
// The phone ciphertext travels with a URL-safe substitution ('/' -> '_',
// '+' -> '-') while keeping the standard '=' padding; the signature uses plain
// standard Base64.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrDecode is returned when a string cannot be decoded.
var ErrDecode = errors.New("codec: invalid base64 input")

var (
	toURLSafe   = strings.NewReplacer("/", "_", "+", "-")
	fromURLSafe = strings.NewReplacer("_", "/", "-", "+")
)

// Base64Encode is standard padded Base64.
func Base64Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Base64URLSafeEncode encodes b with standard Base64, then substitutes the
// two URL-unsafe characters. Padding is left as is.
func Base64URLSafeEncode(b []byte) string {
	return toURLSafe.Replace(base64.StdEncoding.EncodeToString(b))
}

// Base64URLSafeDecode reverses Base64URLSafeEncode. Input whose padding was
// stripped is re-padded first.
func Base64URLSafeDecode(s string) ([]byte, error) {
	std := fromURLSafe.Replace(s)
	switch len(std) % 4 {
	case 1:
		// No valid Base64 leaves a single dangling character; the decode below
		// rejects it after padding.
		std += "==="
	case 2:
		std += "=="
	case 3:
		std += "="
	}
	out, err := base64.StdEncoding.DecodeString(std)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return out, nil
}
