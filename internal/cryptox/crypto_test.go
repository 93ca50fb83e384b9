package cryptox

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return key
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	plaintext := []byte(`{"email":"user@example.com","threads":42}`)

	payload, err := Encrypt(plaintext, key)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmAESGCM, payload.Algorithm)
	assert.Equal(t, EncodingBase64, payload.Encoding)

	got, err := Decrypt(payload, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestEncrypt_FreshNoncePerCall(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	plaintext := []byte("same input twice")

	p1, err := Encrypt(plaintext, key)
	require.NoError(t, err)
	p2, err := Encrypt(plaintext, key)
	require.NoError(t, err)

	assert.NotEqual(t, p1.IV, p2.IV)
	assert.NotEqual(t, p1.Ciphertext, p2.Ciphertext)
}

func TestDecrypt_TamperedFieldsFail(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	payload, err := Encrypt([]byte("sensitive"), key)
	require.NoError(t, err)

	flipBit := func(s string) string {
		raw, err := base64.StdEncoding.DecodeString(s)
		require.NoError(t, err)
		raw[0] ^= 0x01
		return base64.StdEncoding.EncodeToString(raw)
	}

	tests := []struct {
		name   string
		mutate func(p *EncryptedPayload)
	}{
		{"ciphertext", func(p *EncryptedPayload) { p.Ciphertext = flipBit(p.Ciphertext) }},
		{"iv", func(p *EncryptedPayload) { p.IV = flipBit(p.IV) }},
		{"tag", func(p *EncryptedPayload) { p.Tag = flipBit(p.Tag) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mutated := *payload
			tc.mutate(&mutated)

			got, err := Decrypt(&mutated, key)
			require.ErrorIs(t, err, ErrDecryption)
			assert.Nil(t, got)
		})
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	t.Parallel()

	payload, err := Encrypt([]byte("data"), testKey(t))
	require.NoError(t, err)

	_, err = Decrypt(payload, testKey(t))
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestDecrypt_RejectsUnknownIdentifiers(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	payload, err := Encrypt([]byte("data"), key)
	require.NoError(t, err)

	badAlg := *payload
	badAlg.Algorithm = "rot13"
	_, err = Decrypt(&badAlg, key)
	assert.ErrorIs(t, err, ErrDecryption)

	badEnc := *payload
	badEnc.Encoding = "hex"
	_, err = Decrypt(&badEnc, key)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestDecrypt_TruncatedInput(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	payload, err := Encrypt([]byte("data"), key)
	require.NoError(t, err)

	payload.Tag = base64.StdEncoding.EncodeToString([]byte("short"))
	_, err = Decrypt(payload, key)
	assert.ErrorIs(t, err, ErrDecryption)

	_, err = Decrypt(nil, key)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestEncrypt_BadKeyLength(t *testing.T) {
	t.Parallel()

	_, err := Encrypt([]byte("data"), []byte("too short"))
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestParseKeyHex(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	parsed, err := ParseKeyHex(hex.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = ParseKeyHex("not-hex")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = ParseKeyHex("abcd")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestDeriveKey_Deterministic(t *testing.T) {
	t.Parallel()

	k1 := DeriveKey([]byte("passphrase"), []byte("salt-1"))
	k2 := DeriveKey([]byte("passphrase"), []byte("salt-1"))
	k3 := DeriveKey([]byte("passphrase"), []byte("salt-2"))

	if !bytes.Equal(k1, k2) {
		t.Errorf("expected same result for same inputs, got different")
	}
	if bytes.Equal(k1, k3) {
		t.Errorf("expected different results for different salts, got same")
	}
	assert.Len(t, k1, KeySize)
}
