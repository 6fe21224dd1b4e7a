package cryptoutils

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"
)

// TLSCert represents a TLS certificate chain in PEM format, leaf first.
type TLSCert []byte

// NewTLSCert creates a new certificate object from PEM-encoded data with validation.
func NewTLSCert(data []byte) (TLSCert, error) {
	cert := TLSCert(data)
	if _, err := cert.GetX509Chain(); err != nil {
		return TLSCert{}, err
	}
	return cert, nil
}

// GetX509Cert returns the parsed leaf certificate.
func (cert TLSCert) GetX509Cert() (*x509.Certificate, error) {
	block, _ := pem.Decode(cert)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("invalid certificate: not in PEM format or not a certificate")
	}
	return x509.ParseCertificate(block.Bytes)
}

// GetX509Chain returns every certificate in the PEM data.
func (cert TLSCert) GetX509Chain() ([]*x509.Certificate, error) {
	var chain []*x509.Certificate
	rest := []byte(cert)
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("unexpected PEM block %q", block.Type)
		}

		parsed, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("invalid certificate structure: %w", err)
		}
		chain = append(chain, parsed)
	}

	if len(chain) == 0 {
		return nil, errors.New("invalid certificate: not in PEM format or not a certificate")
	}
	return chain, nil
}

// IsExpired checks if the leaf certificate has expired.
func (cert TLSCert) IsExpired() (bool, error) {
	x509Cert, err := cert.GetX509Cert()
	if err != nil {
		return false, err
	}
	return x509Cert.NotAfter.Before(time.Now()), nil
}

// AppPubkey represents a public key in PEM format.
type AppPubkey []byte

// NewAppPubkeyFromKey PEM-encodes a public key.
func NewAppPubkeyFromKey(pub crypto.PublicKey) (AppPubkey, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
