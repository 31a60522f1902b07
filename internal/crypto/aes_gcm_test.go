package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestNewAESGCMRejectsBadKeySize(t *testing.T) {
	_, err := NewAESGCM([]byte("too short"))
	assert.ErrorIs(t, err, ErrInvalidKeySize)

	for _, size := range []int{16, 24, 32} {
		_, err := NewAESGCM(bytes.Repeat([]byte{1}, size))
		assert.NoError(t, err, "key size %d", size)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	aead, err := NewAESGCM(testKey())
	require.NoError(t, err)

	plaintext := []byte("I have been struggling since my sister passed away")
	ct, err := Encrypt(aead, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ct)

	got, err := Decrypt(aead, ct)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestEncryptProducesUniqueNonces(t *testing.T) {
	aead, err := NewAESGCM(testKey())
	require.NoError(t, err)

	a, err := Encrypt(aead, []byte("same message"))
	require.NoError(t, err)
	b, err := Encrypt(aead, []byte("same message"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptDetectsTampering(t *testing.T) {
	aead, err := NewAESGCM(testKey())
	require.NoError(t, err)

	ct, err := Encrypt(aead, []byte("sensitive content"))
	require.NoError(t, err)

	ct[len(ct)-1] ^= 0xFF
	_, err = Decrypt(aead, ct)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	aead, err := NewAESGCM(testKey())
	require.NoError(t, err)

	_, err = Decrypt(aead, []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestStringRoundTrip(t *testing.T) {
	aead, err := NewAESGCM(testKey())
	require.NoError(t, err)

	encoded, err := EncryptString(aead, "chunk content")
	require.NoError(t, err)
	assert.NotContains(t, encoded, "chunk content")

	got, err := DecryptString(aead, encoded)
	require.NoError(t, err)
	assert.Equal(t, "chunk content", got)
}

func TestDecryptStringRejectsBadBase64(t *testing.T) {
	aead, err := NewAESGCM(testKey())
	require.NoError(t, err)

	_, err = DecryptString(aead, "not%%base64")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}
