package keystore

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ruteri/opcua-server-keystore/cryptoutils"
	"github.com/ruteri/opcua-server-keystore/interfaces"
	"go.uber.org/atomic"
)

// Manager guarantees that a usable, persisted keystore exists at a storage
// location and exposes typed access to its contents.
//
// Construction is not synchronized: callers must serialize Open per storage
// location. Once Open has returned, all read methods are safe for
// concurrent use.
type Manager struct {
	provider interfaces.IdentityProvider
	backend  interfaces.KeyStoreBackend
	log      *slog.Logger

	state atomic.Int32
	store *Store
}

// Open loads the keystore stored in backend, or creates, initializes and
// persists a new one when none exists.
//
// Returned errors:
//   - ErrStoreCorrupt when stored data cannot be decoded with the store
//     password; nothing is written.
//   - the provider's error when initialization fails; nothing is written.
//   - ErrPersistence when the new keystore could not be saved. In that case
//     the returned Manager is non-nil and usable for the process lifetime.
func Open(ctx context.Context, settings interfaces.Settings, provider interfaces.IdentityProvider, backend interfaces.KeyStoreBackend, log *slog.Logger) (*Manager, error) {
	if provider == nil {
		return nil, errors.New("identity provider is required")
	}
	if backend == nil {
		return nil, errors.New("storage backend is required")
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	m := &Manager{
		provider: provider,
		backend:  backend,
		log:      log.With("location", backend.LocationURI()),
	}

	persistErr, err := m.loadOrInitialize(ctx, settings.StorePassword)
	if err != nil {
		m.state.Store(int32(interfaces.StateFailed))
		return nil, err
	}
	return m, persistErr
}

func (m *Manager) loadOrInitialize(ctx context.Context, storePassword []byte) (persistErr error, err error) {
	m.setState(interfaces.StateLoading)
	start := time.Now()

	data, err := m.backend.Load(ctx)
	switch {
	case err == nil:
		store, err := DecodeStore(data, storePassword)
		if err != nil {
			m.log.Error("Failed to decode keystore", "err", err)
			return nil, err
		}
		m.store = store
		m.setState(interfaces.StateLoaded)
		m.log.Info("Loaded keystore",
			slog.Int("entries", len(store.Aliases())),
			slog.Duration("duration", time.Since(start)))
		return nil, nil

	case errors.Is(err, interfaces.ErrKeyStoreNotFound):
		// No store yet

	default:
		m.log.Error("Failed to load keystore", "err", err)
		return nil, fmt.Errorf("failed to load keystore from %s: %w", m.backend.Name(), err)
	}

	m.setState(interfaces.StateInitializing)
	m.log.Info("No keystore found, initializing a new one")

	store := NewStore()
	if err := m.provider.InitializeKeystore(store); err != nil {
		m.log.Error("Failed to initialize keystore", "err", err)
		return nil, fmt.Errorf("failed to initialize keystore: %w", err)
	}
	m.store = store
	m.setState(interfaces.StateInitialized)

	encoded, err := store.Encode(storePassword)
	if err == nil {
		err = m.backend.Save(ctx, encoded)
	}
	if err != nil {
		m.log.Warn("Keystore is not durable, identity is valid for this process only", "err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrPersistence, err), nil
	}

	m.setState(interfaces.StatePersisted)
	m.log.Info("Created keystore",
		slog.Any("aliases", store.Aliases()),
		slog.Duration("duration", time.Since(start)))
	return nil, nil
}

func (m *Manager) setState(s interfaces.State) {
	m.state.Store(int32(s))
}

// State returns the lifecycle state of the manager.
func (m *Manager) State() interfaces.State {
	return interfaces.State(m.state.Load())
}

// KeyPair returns the key pair stored under alias, decrypted with password.
// It returns (nil, nil) when alias is absent and ErrWrongPassword when the
// password is incorrect.
func (m *Manager) KeyPair(alias string, password []byte) (*cryptoutils.KeyPair, error) {
	return m.store.KeyPair(alias, password)
}

// CertificateChain returns the certificate chain stored under alias.
func (m *Manager) CertificateChain(alias string) ([]*x509.Certificate, bool) {
	return m.store.CertificateChain(alias)
}

// Aliases lists the aliases present in the keystore.
func (m *Manager) Aliases() []string {
	return m.store.Aliases()
}

// DefaultAlias returns the identity provider's default alias.
func (m *Manager) DefaultAlias() string {
	return m.provider.DefaultAlias()
}

// DefaultKeyPair returns the key pair stored under the default alias, or
// nil when it is absent.
func (m *Manager) DefaultKeyPair() (*cryptoutils.KeyPair, error) {
	return m.KeyPair(m.provider.DefaultAlias(), m.provider.DefaultEntryPassword())
}

// DefaultCertificateChain returns the chain stored under the default alias.
func (m *Manager) DefaultCertificateChain() ([]*x509.Certificate, bool) {
	return m.CertificateChain(m.provider.DefaultAlias())
}

// LocationURI returns where the keystore is persisted.
func (m *Manager) LocationURI() string {
	return m.backend.LocationURI()
}
