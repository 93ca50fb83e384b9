// Package cryptox implements the authenticated encryption codec used by the
// vault. Payloads are encrypted with AES-256-GCM under a single 32-byte root
// key; every payload is self-describing (algorithm, IV, ciphertext, tag,
// encoding) so stored records can be decrypted without an external
// algorithm-version lookup.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// AlgorithmAESGCM identifies the only algorithm this codec produces.
	AlgorithmAESGCM = "aes-256-gcm"

	// EncodingBase64 identifies the field encoding of EncryptedPayload.
	EncodingBase64 = "base64"

	// KeySize is the required root key length in bytes (AES-256).
	KeySize = 32

	nonceSize = 12
	tagSize   = 16
)

var (
	// ErrEncryption indicates a failure while producing a payload. Absent
	// misuse (bad key length) it should not occur.
	ErrEncryption = errors.New("encryption failed")

	// ErrDecryption indicates tampering, a wrong key, or a corrupted stored
	// payload. The codec fails closed: no partial plaintext is ever returned.
	ErrDecryption = errors.New("decryption failed")

	// ErrInvalidKey indicates a root key of the wrong length or encoding.
	ErrInvalidKey = errors.New("invalid encryption key")
)

// EncryptedPayload is the wire/storage form of an encrypted blob. All byte
// fields are encoded with the encoding named in Encoding.
type EncryptedPayload struct {
	Algorithm  string `json:"algorithm"`
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
	Tag        string `json:"tag"`
	Encoding   string `json:"encoding"`
}

// Encrypt seals plaintext under key with AES-256-GCM. A fresh random 12-byte
// nonce is generated on every call; the nonce is never reused for the same
// key. The GCM tag is kept separate from the ciphertext so the payload layout
// is explicit.
func Encrypt(plaintext, key []byte) (*EncryptedPayload, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryption, err)
	}

	sealed := aesgcm.Seal(nil, nonce, plaintext, nil)

	// Seal appends the tag to the ciphertext; split them apart.
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return &EncryptedPayload{
		Algorithm:  AlgorithmAESGCM,
		IV:         base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
		Tag:        base64.StdEncoding.EncodeToString(tag),
		Encoding:   EncodingBase64,
	}, nil
}

// Decrypt opens a payload produced by Encrypt. The authentication tag is
// checked before any plaintext is returned; on tag mismatch, truncated input,
// or an unknown algorithm/encoding identifier the result is ErrDecryption.
func Decrypt(payload *EncryptedPayload, key []byte) ([]byte, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrDecryption)
	}
	if payload.Algorithm != AlgorithmAESGCM {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrDecryption, payload.Algorithm)
	}
	if payload.Encoding != EncodingBase64 {
		return nil, fmt.Errorf("%w: unsupported encoding %q", ErrDecryption, payload.Encoding)
	}

	nonce, err := base64.StdEncoding.DecodeString(payload.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: bad iv: %w", ErrDecryption, err)
	}
	ct, err := base64.StdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext: %w", ErrDecryption, err)
	}
	tag, err := base64.StdEncoding.DecodeString(payload.Tag)
	if err != nil {
		return nil, fmt.Errorf("%w: bad tag: %w", ErrDecryption, err)
	}
	if len(nonce) != nonceSize || len(tag) != tagSize {
		return nil, fmt.Errorf("%w: truncated payload", ErrDecryption)
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesgcm.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryption, err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return cipher.NewGCM(block)
}

// ParseKeyHex decodes a hex-encoded root key and checks its length.
func ParseKeyHex(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	return key, nil
}

// DeriveKey stretches a passphrase into a 32-byte root key with Argon2id.
// Deterministic for a fixed passphrase and salt.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}
