package cryptoutils

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
)

// KeyPair holds a private key together with its public half.
type KeyPair struct {
	PrivateKey crypto.Signer
	PublicKey  crypto.PublicKey
}

// NewKeyPair wraps a signer into a KeyPair.
func NewKeyPair(priv crypto.Signer) *KeyPair {
	return &KeyPair{PrivateKey: priv, PublicKey: priv.Public()}
}

// GenerateRSAKeyPair generates an RSA key pair of the given modulus size
// using rand.Reader.
func GenerateRSAKeyPair(bits int) (*KeyPair, error) {
	return generateRSAKeyPair(rand.Reader, bits)
}

func generateRSAKeyPair(random io.Reader, bits int) (*KeyPair, error) {
	if bits < 2048 {
		return nil, fmt.Errorf("unsupported RSA key length %d: must be at least 2048 bits", bits)
	}

	privateKey, err := rsa.GenerateKey(random, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	return NewKeyPair(privateKey), nil
}

// MarshalPrivateKey encodes a private key as PKCS#8 DER.
func MarshalPrivateKey(priv crypto.Signer) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	return der, nil
}

// ParsePrivateKey decodes a PKCS#8 DER private key into a KeyPair.
func ParsePrivateKey(der []byte) (*KeyPair, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, errors.New("private key is not a signer")
	}

	return NewKeyPair(signer), nil
}

// PublicKeysEqual reports whether two public keys are identical.
func PublicKeysEqual(a, b crypto.PublicKey) bool {
	ak, ok := a.(interface{ Equal(crypto.PublicKey) bool })
	if !ok {
		return false
	}
	return ak.Equal(b)
}
