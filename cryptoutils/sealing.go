package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
)

const (
	saltSize  = 16
	nonceSize = 12 // 12 bytes is standard for GCM

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// ErrSealOpen is returned when sealed data cannot be authenticated with the
// supplied password. Wrong passwords and tampered data are indistinguishable.
var ErrSealOpen = errors.New("failed to open sealed data")

// SealWithPassword encrypts data under a key derived from password with
// Argon2id and AES-GCM, binding additionalData into the authentication tag.
//
// Format: [salt (16 bytes)][iv (12 bytes)][ciphertext]
func SealWithPassword(password, data, additionalData []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	iv := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	aesGCM, err := passwordAEAD(password, salt)
	if err != nil {
		return nil, err
	}

	ciphertext := aesGCM.Seal(nil, iv, data, additionalData)

	result := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	result = append(result, salt...)
	result = append(result, iv...)
	result = append(result, ciphertext...)
	return result, nil
}

// OpenWithPassword decrypts data produced by SealWithPassword.
func OpenWithPassword(password, sealed, additionalData []byte) ([]byte, error) {
	if len(sealed) < saltSize+nonceSize {
		return nil, fmt.Errorf("%w: sealed data too short", ErrSealOpen)
	}

	salt := sealed[:saltSize]
	iv := sealed[saltSize : saltSize+nonceSize]
	ciphertext := sealed[saltSize+nonceSize:]

	aesGCM, err := passwordAEAD(password, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesGCM.Open(nil, iv, ciphertext, additionalData)
	if err != nil {
		return nil, ErrSealOpen
	}

	return plaintext, nil
}

func passwordAEAD(password, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	defer memguard.WipeBytes(key)

	aesBlock, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return aesGCM, nil
}

// Wipe overwrites secret material in place.
func Wipe(secrets ...[]byte) {
	for _, s := range secrets {
		memguard.WipeBytes(s)
	}
}
