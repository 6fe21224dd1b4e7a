package httpserver

import (
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ruteri/opcua-server-keystore/cryptoutils"
)

// IdentitySource exposes the server identity being distributed.
// *keystore.Manager and *identity.ServerKeyStore satisfy it.
type IdentitySource interface {
	DefaultAlias() string
	DefaultCertificateChain() ([]*x509.Certificate, bool)
}

// IdentitySummary describes the public half of a stored identity.
type IdentitySummary struct {
	Alias          string    `json:"alias"`
	ApplicationURI string    `json:"application_uri,omitempty"`
	Subject        string    `json:"subject"`
	DNSNames       []string  `json:"dns_names"`
	IPAddresses    []string  `json:"ip_addresses"`
	Fingerprint    string    `json:"sha256_fingerprint"`
	PublicKey      string    `json:"public_key,omitempty"`
	NotBefore      time.Time `json:"not_before"`
	NotAfter       time.Time `json:"not_after"`
	Expired        bool      `json:"expired"`
}

// Summarize builds an IdentitySummary from the leaf of chain. An empty chain
// yields a summary carrying only the alias.
func Summarize(alias string, chain []*x509.Certificate) IdentitySummary {
	if len(chain) == 0 {
		return IdentitySummary{Alias: alias, DNSNames: []string{}, IPAddresses: []string{}}
	}
	leaf := chain[0]

	summary := IdentitySummary{
		Alias:       alias,
		Subject:     leaf.Subject.String(),
		DNSNames:    append([]string{}, leaf.DNSNames...),
		IPAddresses: make([]string, 0, len(leaf.IPAddresses)),
		Fingerprint: hex.EncodeToString(cryptoutils.CertificateFingerprint(leaf)),
		NotBefore:   leaf.NotBefore.UTC(),
		NotAfter:    leaf.NotAfter.UTC(),
	}
	if len(leaf.URIs) > 0 {
		summary.ApplicationURI = leaf.URIs[0].String()
	}
	if pub, err := cryptoutils.NewAppPubkeyFromKey(leaf.PublicKey); err == nil {
		summary.PublicKey = string(pub)
	}
	if expired, err := cryptoutils.EncodeCertificateChain(chain[:1]).IsExpired(); err == nil {
		summary.Expired = expired
	}
	for _, ip := range leaf.IPAddresses {
		summary.IPAddresses = append(summary.IPAddresses, ip.String())
	}
	return summary
}

// Handler serves the public certificate of the server identity to
// trust-on-first-use clients. Private keys are never exposed.
type Handler struct {
	source IdentitySource
	log    *slog.Logger
}

// NewHandler creates a new HTTP request handler for source.
func NewHandler(source IdentitySource, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		source: source,
		log:    log,
	}
}

// HandleCertificate writes the PEM-encoded certificate chain of the default alias.
func (h *Handler) HandleCertificate(w http.ResponseWriter, r *http.Request) {
	chain, found := h.source.DefaultCertificateChain()
	if !found || len(chain) == 0 {
		h.log.Error("No certificate under default alias", slog.String("alias", h.source.DefaultAlias()))
		http.Error(w, "Certificate not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/x-pem-file")
	w.WriteHeader(http.StatusOK)
	w.Write(cryptoutils.EncodeCertificateChain(chain))
}

// HandleIdentity writes a JSON summary of the default identity.
func (h *Handler) HandleIdentity(w http.ResponseWriter, r *http.Request) {
	alias := h.source.DefaultAlias()
	chain, found := h.source.DefaultCertificateChain()
	if !found || len(chain) == 0 {
		h.log.Error("No certificate under default alias", slog.String("alias", alias))
		http.Error(w, "Certificate not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(Summarize(alias, chain)); err != nil {
		h.log.Error("Failed to encode identity summary", "err", err)
	}
}
