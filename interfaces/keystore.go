package interfaces

import (
	"crypto"
	"crypto/x509"
	"errors"
)

var (
	// ErrStoreCorrupt is returned when data exists at the storage location but
	// cannot be decoded with the store password. It is fatal and never
	// triggers re-initialization.
	ErrStoreCorrupt = errors.New("keystore corrupt or store password incorrect")

	// ErrWrongPassword is returned when an entry exists but cannot be opened
	// with the supplied entry password.
	ErrWrongPassword = errors.New("wrong entry password")

	// ErrPersistence is returned when a freshly initialized keystore could not
	// be written. The in-memory keystore stays usable for the process lifetime.
	ErrPersistence = errors.New("keystore could not be persisted")

	// ErrKeyGeneration is returned when key pair or certificate synthesis fails.
	ErrKeyGeneration = errors.New("key generation failed")
)

// KeyStoreWriter is the write surface of a freshly created keystore.
type KeyStoreWriter interface {
	// SetKeyEntry stores key and chain under alias, protecting the private
	// key with password. An existing entry under alias is replaced.
	SetKeyEntry(alias string, key crypto.Signer, password []byte, chain []*x509.Certificate) error
}

// IdentityProvider synthesizes the identity a keystore is initialized with.
// Implementations must not persist anything themselves.
type IdentityProvider interface {
	// InitializeKeystore populates an empty keystore. It is invoked at most
	// once per store, only when no store exists at the storage location.
	InitializeKeystore(store KeyStoreWriter) error

	// DefaultAlias returns the alias of the identity this provider creates.
	DefaultAlias() string

	// DefaultEntryPassword returns the password protecting the default entry.
	DefaultEntryPassword() []byte

	// GenerateSelfSignedCertificate creates a new key pair and a certificate
	// self-signed with it.
	GenerateSelfSignedCertificate() (*KeyPair, *x509.Certificate, error)
}
