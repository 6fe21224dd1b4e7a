package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ruteri/opcua-server-keystore/cryptoutils"
	"github.com/ruteri/opcua-server-keystore/interfaces"
	"github.com/ruteri/opcua-server-keystore/keystore"
	"github.com/ruteri/opcua-server-keystore/storage"
)

// ServerKeyStore is a keystore holding the server's application instance
// identity.
type ServerKeyStore struct {
	*keystore.Manager
	provider *ServerIdentityProvider
}

// NewServerKeyStore opens the keystore at settings.StorageLocation, creating
// it with a freshly generated server identity when none exists. hostnames is
// called at most once, and only when a new identity is generated.
//
// A loaded keystore whose default key does not match its certificate is
// rejected with interfaces.ErrStoreCorrupt.
//
// When the new keystore cannot be persisted the returned ServerKeyStore is
// usable together with an error wrapping interfaces.ErrPersistence.
func NewServerKeyStore(ctx context.Context, settings interfaces.Settings, hostnames HostnameSource, opts ...Option) (*ServerKeyStore, error) {
	cfg := newConfig(opts)

	log := cfg.log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	backend := cfg.backend
	if backend == nil {
		var err error
		backend, err = storage.NewFactory(log).BackendFor(settings.StorageLocation)
		if err != nil {
			return nil, err
		}
	}

	// The resolved config is passed on so both share one application UUID
	provider := NewServerIdentityProvider(settings, hostnames,
		WithApplicationUUID(cfg.applicationUUID),
		WithSubject(cfg.subject),
		WithLogger(log))

	manager, err := keystore.Open(ctx, settings, provider, backend, log)
	if manager == nil {
		return nil, err
	}

	ks := &ServerKeyStore{Manager: manager, provider: provider}
	if err != nil && !errors.Is(err, interfaces.ErrPersistence) {
		return nil, err
	}

	if manager.State() == interfaces.StateLoaded {
		if verr := ks.verifyDefaultIdentity(); verr != nil {
			log.Error("Stored server identity is unusable", "err", verr)
			return nil, verr
		}
	}
	return ks, err
}

// verifyDefaultIdentity checks that the default key opens with the default
// entry password and belongs to the leaf certificate. A keystore without a
// default entry passes.
func (s *ServerKeyStore) verifyDefaultIdentity() error {
	chain, found := s.DefaultCertificateChain()
	if !found {
		return nil
	}

	keyPair, err := s.DefaultKeyPair()
	if err != nil {
		return fmt.Errorf("failed to open %q entry: %w", s.DefaultAlias(), err)
	}

	if err := cryptoutils.VerifyCertificate(keyPair.PrivateKey, chain[0]); err != nil {
		return fmt.Errorf("%w: %q entry: %v", interfaces.ErrStoreCorrupt, s.DefaultAlias(), err)
	}
	return nil
}

// Provider returns the identity provider the keystore was opened with.
func (s *ServerKeyStore) Provider() *ServerIdentityProvider {
	return s.provider
}

// ApplicationURI returns the application URI carried by the stored server
// certificate. It can differ from Provider().ApplicationURI() when the
// keystore was loaded rather than created.
func (s *ServerKeyStore) ApplicationURI() string {
	chain, found := s.DefaultCertificateChain()
	if !found || len(chain[0].URIs) == 0 {
		return ""
	}
	return chain[0].URIs[0].String()
}
