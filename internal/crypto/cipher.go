// Package crypto implements the fixed AES-128-CBC scheme the plea service
// verifies. Key, IV and the signature suffix are part of the wire contract
// with the remote verifier and must not change.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/example/plea-submit/internal/codec"
)

const (
	key        = "ebupt_1234567890"
	iv         = "1234567890123456"
	signSuffix = "91Bmzn$0$#brkNYX"

	// phoneSeparator joins the phone number and the millisecond timestamp.
	phoneSeparator = "$"
)

var (
	// ErrEncrypt is returned when the block cipher cannot be initialised.
	ErrEncrypt = errors.New("crypto: encrypt failed")
	// ErrDecrypt covers every decryption failure: bad encoding, wrong block
	// size, bad padding or non UTF-8 plaintext.
	ErrDecrypt = errors.New("crypto: decrypt failed")
)

// EncryptPhone encrypts "phone$nowMillis" and returns URL-safe Base64.
func EncryptPhone(plainPhone string, nowMillis int64) (string, error) {
	payload := plainPhone + phoneSeparator + strconv.FormatInt(nowMillis, 10)
	ct, err := encryptCBC([]byte(payload))
	if err != nil {
		return "", err
	}
	return codec.Base64URLSafeEncode(ct), nil
}

// DecryptPhone reverses EncryptPhone and strips the timestamp suffix. A
// plaintext without a separator is returned whole.
func DecryptPhone(cipherText string) (string, error) {
	raw, err := codec.Base64URLSafeDecode(cipherText)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	pt, err := decryptCBC(raw)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(pt) {
		return "", fmt.Errorf("%w: plaintext is not valid utf-8", ErrDecrypt)
	}
	plain := string(pt)
	if idx := strings.LastIndex(plain, phoneSeparator); idx >= 0 {
		return plain[:idx], nil
	}
	return plain, nil
}

// EncryptSign appends the shared suffix to payload, encrypts it and returns
// standard Base64. Unlike the phone field no URL-safe substitution is applied.
func EncryptSign(payload string) (string, error) {
	ct, err := encryptCBC([]byte(payload + signSuffix))
	if err != nil {
		return "", err
	}
	return codec.Base64Encode(ct), nil
}

// SignPayload concatenates the signed fields in the order given.
func SignPayload(fields ...string) string {
	return strings.Join(fields, "")
}

func newBlock() (cipher.Block, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, err
	}
	return block, nil
}

func encryptCBC(plaintext []byte) ([]byte, error) {
	block, err := newBlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, []byte(iv)).CryptBlocks(out, padded)
	return out, nil
}

func decryptCBC(ciphertext []byte) ([]byte, error) {
	block, err := newBlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	size := block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%size != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of block size %d", ErrDecrypt, len(ciphertext), size)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, []byte(iv)).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, size)
}

func pkcs7Pad(data []byte, size int) []byte {
	n := size - len(data)%size
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, size int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrDecrypt)
	}
	n := int(data[len(data)-1])
	if n == 0 || n > size || n > len(data) {
		return nil, fmt.Errorf("%w: invalid padding", ErrDecrypt)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: invalid padding", ErrDecrypt)
		}
	}
	return data[:len(data)-n], nil
}
