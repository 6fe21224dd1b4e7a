// Package cryptoutils provides the cryptographic building blocks of the
// server keystore.
//
// # Key Functions
//
// GenerateRSAKeyPair - Generates an RSA key pair of a configurable size
//
// CreateSelfSignedCertificate - Builds and self-signs an application instance
// certificate from a SelfSignedCertificateRequest
//
// SealWithPassword / OpenWithPassword - Password-based authenticated encryption
// used by the keystore codec
//
// # Subject Alternative Names
//
// SelfSignedCertificateRequest.AddHostname classifies every hostname string.
// A string matching the dotted-quad pattern
//
//	^(([01]?\d\d?|2[0-4]\d|25[0-5])\.){3}([01]?\d\d?|2[0-4]\d|25[0-5])$
//
// becomes an IP address entry; anything else, including IPv6 literals,
// becomes a DNS name entry. Classification never fails.
//
// # Sealing Format
//
// The sealed data follows this binary format:
//
//	[salt (16 bytes)][iv (12 bytes)][ciphertext]
//
// Where:
//   - Salt: random input to Argon2id (time=1, memory=64MiB, threads=4)
//   - IV: 12-byte nonce for AES-GCM
//   - Ciphertext: AES-256-GCM output including the authentication tag
//
// A wrong password and tampered data both surface as ErrSealOpen. Derived
// keys are wiped as soon as the cipher is constructed.
//
// # Usage Example
//
//	keyPair, err := cryptoutils.GenerateRSAKeyPair(2048)
//	if err != nil {
//	    log.Fatalf("Failed to generate key: %v", err)
//	}
//
//	req := cryptoutils.SelfSignedCertificateRequest{
//	    Subject:        cryptoutils.CertificateSubject{CommonName: "My Server"},
//	    ApplicationURI: "urn:example:server:1234",
//	}
//	req.AddHostname("10.0.0.5")
//	req.AddHostname("opc.example.com")
//
//	cert, err := cryptoutils.CreateSelfSignedCertificate(keyPair, req)
package cryptoutils
