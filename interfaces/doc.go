// Package interfaces defines the core interfaces and types shared by the
// keystore, identity, storage and transport packages, separating interface
// definitions from implementations.
//
// # Keystore Interfaces
//
// IdentityProvider: Capability implemented by identity-generation strategies
// (server, client, test fakes). The keystore manager calls it exactly once,
// when no store exists at the configured location, to populate the fresh
// store.
//
// KeyStoreWriter: The narrow write surface of an in-memory keystore handed to
// IdentityProvider.InitializeKeystore.
//
// # Storage Interfaces
//
// KeyStoreBackend: Durable storage holding exactly one encoded keystore blob
// at a fixed location (file, S3, Vault, IPFS MFS, or a mirrored combination).
//
// StorageLocation: Parsed URI identifying where a keystore lives.
//
// # Errors
//
// All failures surface as wrapped sentinel errors so callers can use
// errors.Is:
//
//   - ErrStoreCorrupt: a store exists but cannot be decoded with the password
//   - ErrWrongPassword: an entry exists but the entry password is wrong
//   - ErrPersistence: the store was created but could not be written
//   - ErrKeyGeneration: key pair or certificate synthesis failed
//   - ErrKeyStoreNotFound: nothing is stored at the location yet
package interfaces
