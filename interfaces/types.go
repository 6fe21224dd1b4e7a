package interfaces

import (
	"github.com/ruteri/opcua-server-keystore/cryptoutils"
)

type KeyPair = cryptoutils.KeyPair
type TLSCert = cryptoutils.TLSCert
type AppPubkey = cryptoutils.AppPubkey

// Settings configures a keystore manager. It is immutable for the lifetime of
// the manager.
type Settings struct {
	// StorageLocation is a location URI (file://, s3://, vault://, ipfs://)
	// or a plain filesystem path.
	StorageLocation string

	// StorePassword protects the keystore as a whole.
	StorePassword []byte

	// DefaultKeyLength is the RSA modulus size used for generated identities.
	// Zero selects DefaultKeyLength.
	DefaultKeyLength int
}

// DefaultKeyLength is the RSA key size used when Settings leaves it unset.
const DefaultKeyLength = 2048

// MinKeyLength is the smallest RSA key size accepted for generated identities.
const MinKeyLength = 2048

// KeyLength returns the configured key length, falling back to DefaultKeyLength.
func (s Settings) KeyLength() int {
	if s.DefaultKeyLength == 0 {
		return DefaultKeyLength
	}
	return s.DefaultKeyLength
}

// State is the lifecycle state of a keystore manager.
type State int32

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
	StateInitializing
	StateInitialized
	StatePersisted
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateInitializing:
		return "initializing"
	case StateInitialized:
		return "initialized"
	case StatePersisted:
		return "persisted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
