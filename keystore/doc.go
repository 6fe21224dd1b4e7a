// Package keystore implements the persistent keystore: an encrypted,
// alias-addressed container of identity records, and the Manager that owns
// its generate-or-load lifecycle.
//
// # Lifecycle
//
// Open drives the manager through these states:
//
//	Unloaded -> Loading -> Loaded
//	Unloaded -> Loading -> Initializing -> Initialized -> Persisted
//
// Initializing is entered only when the storage backend reports that no
// keystore exists. A keystore that exists but cannot be decoded with the
// store password is a terminal failure (ErrStoreCorrupt); it is never
// treated as absent and never overwritten.
//
// The IdentityProvider's InitializeKeystore hook runs at most once, against a
// fresh in-memory Store. If it fails nothing is persisted. If persisting the
// initialized store fails, Open returns the usable Manager together with an
// error wrapping ErrPersistence.
//
// # Encoding
//
// A Store is encoded as a JSON entry table sealed with the store password
// (see cryptoutils.SealWithPassword) behind a four byte "OKS1" magic. Private
// keys inside each entry are independently sealed with the entry password
// and bound to their alias, so the store password alone does not reveal key
// material and a wrong entry password is reported as ErrWrongPassword.
//
// # Usage Example
//
//	backend, _ := storage.NewFileBackend("/var/lib/server/keystore.oks", logger)
//	manager, err := keystore.Open(ctx, settings, provider, backend, logger)
//	if errors.Is(err, interfaces.ErrPersistence) {
//	    logger.Warn("keystore not durable", "err", err)
//	} else if err != nil {
//	    return err
//	}
//
//	keyPair, err := manager.DefaultKeyPair()
//	chain, _ := manager.DefaultCertificateChain()
package keystore
