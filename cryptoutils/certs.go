package cryptoutils

import (
	"crypto"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultCertificateValidity is the lifetime of generated self-signed certificates.
const DefaultCertificateValidity = 3 * 365 * 24 * time.Hour

// ipv4Pattern matches dotted-quad IPv4 literals. It deliberately accepts
// zero-padded octets such as "010" or "00".
var ipv4Pattern = regexp.MustCompile(`^(([01]?\d\d?|2[0-4]\d|25[0-5])\.){3}([01]?\d\d?|2[0-4]\d|25[0-5])$`)

// IsIPv4Literal reports whether s is a dotted-quad IPv4 address with each
// octet in [0, 255].
func IsIPv4Literal(s string) bool {
	return ipv4Pattern.MatchString(s)
}

// parseIPv4Literal converts a string accepted by IsIPv4Literal into an IP,
// reading every octet as a decimal number.
func parseIPv4Literal(s string) (net.IP, bool) {
	if !IsIPv4Literal(s) {
		return nil, false
	}

	parts := strings.Split(s, ".")
	var octets [4]byte
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 || v > 255 {
			return nil, false
		}
		octets[i] = byte(v)
	}

	return net.IPv4(octets[0], octets[1], octets[2], octets[3]), true
}

// CertificateSubject is the organizational identity stamped into a certificate.
type CertificateSubject struct {
	CommonName         string
	Organization       string
	OrganizationalUnit string
	Locality           string
	State              string
	Country            string
}

// Name converts the subject into a pkix.Name, omitting empty fields.
func (s CertificateSubject) Name() pkix.Name {
	name := pkix.Name{CommonName: s.CommonName}
	if s.Organization != "" {
		name.Organization = []string{s.Organization}
	}
	if s.OrganizationalUnit != "" {
		name.OrganizationalUnit = []string{s.OrganizationalUnit}
	}
	if s.Locality != "" {
		name.Locality = []string{s.Locality}
	}
	if s.State != "" {
		name.Province = []string{s.State}
	}
	if s.Country != "" {
		name.Country = []string{s.Country}
	}
	return name
}

// SelfSignedCertificateRequest collects everything that goes into a
// self-signed application instance certificate.
type SelfSignedCertificateRequest struct {
	Subject        CertificateSubject
	ApplicationURI string
	DNSNames       []string
	IPAddresses    []net.IP

	// ValidFor defaults to DefaultCertificateValidity.
	ValidFor time.Duration

	// Now overrides the issuance time; zero means time.Now().
	Now time.Time
}

// AddHostname classifies hostname as an IPv4 literal or a DNS name and adds
// it to the matching Subject Alternative Name list. IPv6 literals and any
// other non-matching strings are added as DNS names. Empty strings and
// duplicates are ignored.
func (r *SelfSignedCertificateRequest) AddHostname(hostname string) {
	if hostname == "" {
		return
	}

	if ip, ok := parseIPv4Literal(hostname); ok {
		for _, existing := range r.IPAddresses {
			if existing.Equal(ip) {
				return
			}
		}
		r.IPAddresses = append(r.IPAddresses, ip)
		return
	}

	for _, existing := range r.DNSNames {
		if existing == hostname {
			return
		}
	}
	r.DNSNames = append(r.DNSNames, hostname)
}

// CreateSelfSignedCertificate builds a certificate for keyPair according to
// req and signs it with keyPair's own private key, so issuer and subject are
// identical.
func CreateSelfSignedCertificate(keyPair *KeyPair, req SelfSignedCertificateRequest) (*x509.Certificate, error) {
	if keyPair == nil || keyPair.PrivateKey == nil {
		return nil, errors.New("missing key pair")
	}

	// Generate serial number
	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	validFor := req.ValidFor
	if validFor == 0 {
		validFor = DefaultCertificateValidity
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject:      req.Subject.Name(),
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.Add(validFor),
		KeyUsage: x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment |
			x509.KeyUsageKeyEncipherment | x509.KeyUsageDataEncipherment | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              req.DNSNames,
		IPAddresses:           req.IPAddresses,
	}

	if req.ApplicationURI != "" {
		appURI, err := url.Parse(req.ApplicationURI)
		if err != nil {
			return nil, fmt.Errorf("invalid application URI: %w", err)
		}
		template.URIs = []*url.URL{appURI}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, keyPair.PublicKey, keyPair.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created certificate: %w", err)
	}

	return cert, nil
}

// VerifyCertificate validates that a certificate belongs to a given private
// key. Validity dates are not checked.
func VerifyCertificate(priv crypto.Signer, cert *x509.Certificate) error {
	if priv == nil || cert == nil {
		return errors.New("missing private key or certificate")
	}

	if !PublicKeysEqual(cert.PublicKey, priv.Public()) {
		return errors.New("private key doesn't match certificate")
	}

	return nil
}

// CertificateFingerprint returns the SHA-256 hash of the certificate's DER encoding.
func CertificateFingerprint(cert *x509.Certificate) []byte {
	sum := sha256.Sum256(cert.Raw)
	return sum[:]
}

// EncodeCertificateChain PEM-encodes a certificate chain, leaf first.
func EncodeCertificateChain(chain []*x509.Certificate) TLSCert {
	var out []byte
	for _, cert := range chain {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})...)
	}
	return TLSCert(out)
}
