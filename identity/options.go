package identity

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/ruteri/opcua-server-keystore/cryptoutils"
	"github.com/ruteri/opcua-server-keystore/interfaces"
)

type config struct {
	applicationUUID uuid.UUID
	subject         cryptoutils.CertificateSubject
	backend         interfaces.KeyStoreBackend
	log             *slog.Logger
}

// Option customizes a ServerIdentityProvider or a ServerKeyStore.
type Option func(*config)

func newConfig(opts []Option) config {
	cfg := config{subject: DefaultSubject}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.applicationUUID == uuid.Nil {
		cfg.applicationUUID = uuid.New()
	}
	return cfg
}

// WithApplicationUUID fixes the UUID embedded in the application URI.
func WithApplicationUUID(id uuid.UUID) Option {
	return func(c *config) { c.applicationUUID = id }
}

// WithSubject overrides DefaultSubject.
func WithSubject(subject cryptoutils.CertificateSubject) Option {
	return func(c *config) { c.subject = subject }
}

// WithBackend stores the keystore in backend instead of the location named
// by Settings.StorageLocation.
func WithBackend(backend interfaces.KeyStoreBackend) Option {
	return func(c *config) { c.backend = backend }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) { c.log = log }
}
