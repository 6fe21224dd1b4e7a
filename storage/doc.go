// Package storage provides durable locations for an encoded keystore.
//
// Every backend stores exactly one opaque blob, the sealed keystore produced
// by the keystore package, and implements interfaces.KeyStoreBackend:
//
//   - FileBackend: a single file, replaced atomically with mode 0600
//   - S3Backend: one object in Amazon S3 or a compatible service
//   - VaultBackend: one HashiCorp Vault KV v2 secret
//   - IPFSBackend: one file in an IPFS node's mutable file system
//   - MirroredBackend: copies of the keystore in several of the above
//
// # Location URIs
//
// Backends are created by Factory from location URIs:
//
//	/var/lib/opcua/server.oks
//	file:///var/lib/opcua/server.oks
//	s3://ACCESS:SECRET@bucket/opcua/server.oks?region=eu-west-1
//	vault://vault.example.com:8200/secret/opcua/server-keystore
//	ipfs://localhost:5001/opcua/server.oks
//
// A value without a scheme is a filesystem path.
//
// # Missing keystores
//
// Load returns interfaces.ErrKeyStoreNotFound only when the location is
// reachable and holds nothing. Any other failure is reported as an error so
// that callers never mistake an outage for a fresh installation.
package storage
