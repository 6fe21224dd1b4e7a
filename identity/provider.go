package identity

import (
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/ruteri/opcua-server-keystore/cryptoutils"
	"github.com/ruteri/opcua-server-keystore/interfaces"
)

const (
	// DefaultServerAlias is the alias the server identity is stored under.
	DefaultServerAlias = "server"

	// DefaultServerPassword protects the server identity entry.
	DefaultServerPassword = "password"

	// ApplicationURIPrefix precedes the application UUID in the certificate's
	// application URI.
	ApplicationURIPrefix = "urn:eclipse:milo:opcua:server:"
)

// DefaultSubject is the organizational identity of generated server certificates.
var DefaultSubject = cryptoutils.CertificateSubject{
	CommonName:         "Eclipse Milo OPC UA Demo Server",
	Organization:       "digitalpetri",
	OrganizationalUnit: "dev",
	Locality:           "Folsom",
	State:              "CA",
	Country:            "US",
}

// HostnameSource returns the hostnames and IPv4 addresses the server is
// reachable at. It is sampled once, when the certificate is generated.
type HostnameSource func() []string

// StaticHostnames returns a HostnameSource that always yields hostnames.
func StaticHostnames(hostnames ...string) HostnameSource {
	return func() []string {
		return hostnames
	}
}

// ServerIdentityProvider generates a self-signed OPC UA application instance
// certificate and stores it under DefaultServerAlias.
type ServerIdentityProvider struct {
	keyLength       int
	applicationUUID uuid.UUID
	subject         cryptoutils.CertificateSubject
	hostnames       HostnameSource
	log             *slog.Logger
}

var _ interfaces.IdentityProvider = (*ServerIdentityProvider)(nil)

// NewServerIdentityProvider creates a provider generating keys of
// settings.KeyLength() bits. A random application UUID is chosen unless
// WithApplicationUUID is given.
func NewServerIdentityProvider(settings interfaces.Settings, hostnames HostnameSource, opts ...Option) *ServerIdentityProvider {
	cfg := newConfig(opts)

	log := cfg.log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &ServerIdentityProvider{
		keyLength:       settings.KeyLength(),
		applicationUUID: cfg.applicationUUID,
		subject:         cfg.subject,
		hostnames:       hostnames,
		log:             log,
	}
}

// ApplicationUUID returns the UUID embedded in the application URI.
func (p *ServerIdentityProvider) ApplicationUUID() uuid.UUID {
	return p.applicationUUID
}

// ApplicationURI returns the URI stamped into generated certificates.
func (p *ServerIdentityProvider) ApplicationURI() string {
	return ApplicationURIPrefix + p.applicationUUID.String()
}

// InitializeKeystore generates the server identity and stores it under
// DefaultServerAlias with DefaultServerPassword.
func (p *ServerIdentityProvider) InitializeKeystore(store interfaces.KeyStoreWriter) error {
	keyPair, cert, err := p.GenerateSelfSignedCertificate()
	if err != nil {
		return err
	}

	password := p.DefaultEntryPassword()
	defer cryptoutils.Wipe(password)

	if err := store.SetKeyEntry(DefaultServerAlias, keyPair.PrivateKey, password, []*x509.Certificate{cert}); err != nil {
		return fmt.Errorf("failed to store server identity: %w", err)
	}
	return nil
}

// DefaultAlias returns DefaultServerAlias.
func (p *ServerIdentityProvider) DefaultAlias() string {
	return DefaultServerAlias
}

// DefaultEntryPassword returns a fresh copy of DefaultServerPassword.
func (p *ServerIdentityProvider) DefaultEntryPassword() []byte {
	return []byte(DefaultServerPassword)
}

// GenerateSelfSignedCertificate creates an RSA key pair and a certificate
// self-signed with it. Every hostname from the hostname source that is an
// IPv4 literal becomes an IP address SAN; anything else becomes a DNS SAN.
func (p *ServerIdentityProvider) GenerateSelfSignedCertificate() (*cryptoutils.KeyPair, *x509.Certificate, error) {
	if p.keyLength < interfaces.MinKeyLength {
		return nil, nil, fmt.Errorf("%w: key length %d is below %d bits", interfaces.ErrKeyGeneration, p.keyLength, interfaces.MinKeyLength)
	}

	keyPair, err := cryptoutils.GenerateRSAKeyPair(p.keyLength)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", interfaces.ErrKeyGeneration, err)
	}

	req := cryptoutils.SelfSignedCertificateRequest{
		Subject:        p.subject,
		ApplicationURI: p.ApplicationURI(),
	}
	if p.hostnames != nil {
		for _, hostname := range p.hostnames() {
			req.AddHostname(hostname)
		}
	}

	cert, err := cryptoutils.CreateSelfSignedCertificate(keyPair, req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", interfaces.ErrKeyGeneration, err)
	}

	p.log.Info("Generated self-signed server certificate",
		slog.String("applicationURI", req.ApplicationURI),
		slog.Int("keyLength", p.keyLength),
		slog.Any("dnsNames", req.DNSNames),
		slog.Int("ipAddresses", len(req.IPAddresses)),
		slog.Time("notAfter", cert.NotAfter))

	return keyPair, cert, nil
}
