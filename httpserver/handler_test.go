package httpserver

import (
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ruteri/opcua-server-keystore/cryptoutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	alias string
	chain []*x509.Certificate
}

func (s *staticSource) DefaultAlias() string { return s.alias }

func (s *staticSource) DefaultCertificateChain() ([]*x509.Certificate, bool) {
	return s.chain, len(s.chain) > 0
}

func newTestServer(t *testing.T, source IdentitySource) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(&HTTPServerConfig{Log: logger}, NewHandler(source, logger))
	require.NoError(t, err)
	return srv
}

func testChain(t *testing.T) []*x509.Certificate {
	t.Helper()
	keyPair, err := cryptoutils.GenerateRSAKeyPair(2048)
	require.NoError(t, err)

	req := cryptoutils.SelfSignedCertificateRequest{
		Subject:        cryptoutils.CertificateSubject{CommonName: "Test Server", Organization: "org"},
		ApplicationURI: "urn:eclipse:milo:opcua:server:1234",
	}
	req.AddHostname("10.0.0.5")
	req.AddHostname("opc.example.com")

	cert, err := cryptoutils.CreateSelfSignedCertificate(keyPair, req)
	require.NoError(t, err)
	return []*x509.Certificate{cert}
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHandleCertificate(t *testing.T) {
	chain := testChain(t)
	srv := newTestServer(t, &staticSource{alias: "server", chain: chain})

	rr := get(t, srv, "/api/public/certificate")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/x-pem-file", rr.Header().Get("Content-Type"))

	served, err := cryptoutils.NewTLSCert(rr.Body.Bytes())
	require.NoError(t, err)
	leaf, err := served.GetX509Cert()
	require.NoError(t, err)
	assert.True(t, leaf.Equal(chain[0]))
	assert.NotContains(t, rr.Body.String(), "PRIVATE KEY")
}

func TestHandleIdentity(t *testing.T) {
	chain := testChain(t)
	srv := newTestServer(t, &staticSource{alias: "server", chain: chain})

	rr := get(t, srv, "/api/public/identity")
	require.Equal(t, http.StatusOK, rr.Code)

	var summary IdentitySummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	assert.Equal(t, "server", summary.Alias)
	assert.Equal(t, "urn:eclipse:milo:opcua:server:1234", summary.ApplicationURI)
	assert.Equal(t, []string{"opc.example.com"}, summary.DNSNames)
	assert.Equal(t, []string{"10.0.0.5"}, summary.IPAddresses)
	assert.Equal(t, hex.EncodeToString(cryptoutils.CertificateFingerprint(chain[0])), summary.Fingerprint)
	assert.True(t, chain[0].NotAfter.Equal(summary.NotAfter))

	assert.False(t, summary.Expired)

	block, _ := pem.Decode([]byte(summary.PublicKey))
	require.NotNil(t, block)
	assert.Equal(t, "PUBLIC KEY", block.Type)
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(t, err)
	assert.True(t, cryptoutils.PublicKeysEqual(chain[0].PublicKey, parsed))
}

func TestSummarize(t *testing.T) {
	empty := Summarize("server", nil)
	assert.Equal(t, "server", empty.Alias)
	assert.Empty(t, empty.Fingerprint)
	assert.Empty(t, empty.DNSNames)

	keyPair, err := cryptoutils.GenerateRSAKeyPair(2048)
	require.NoError(t, err)
	expired, err := cryptoutils.CreateSelfSignedCertificate(keyPair, cryptoutils.SelfSignedCertificateRequest{
		Subject:  cryptoutils.CertificateSubject{CommonName: "Old Server"},
		Now:      time.Now().Add(-48 * time.Hour),
		ValidFor: time.Hour,
	})
	require.NoError(t, err)
	assert.True(t, Summarize("server", []*x509.Certificate{expired}).Expired)
}

func TestHandleMissingIdentityWithoutLogger(t *testing.T) {
	srv, err := New(&HTTPServerConfig{Log: slog.New(slog.NewTextHandler(io.Discard, nil))},
		NewHandler(&staticSource{alias: "server"}, nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/public/certificate").Code)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/public/identity").Code)
}

func TestHandleMissingIdentity(t *testing.T) {
	srv := newTestServer(t, &staticSource{alias: "server"})

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/public/certificate").Code)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/public/identity").Code)
}

func TestDrainUndrain(t *testing.T) {
	srv := newTestServer(t, &staticSource{alias: "server"})

	tests := []struct {
		path         string
		expectedCode int
		expectedBody string
	}{
		{"/livez", http.StatusOK, `{"status":"alive"}`},
		{"/readyz", http.StatusOK, `{"status":"ready"}`},
		{"/drain", http.StatusOK, `{"status":"draining"}`},
		{"/drain", http.StatusOK, `{"status":"already draining"}`},
		{"/readyz", http.StatusServiceUnavailable, `{"status":"not ready"}`},
		{"/livez", http.StatusOK, `{"status":"alive"}`},
		{"/undrain", http.StatusOK, `{"status":"ready"}`},
		{"/undrain", http.StatusOK, `{"status":"already ready"}`},
		{"/readyz", http.StatusOK, `{"status":"ready"}`},
	}

	// Steps share server state and must run in order
	for _, tt := range tests {
		rr := get(t, srv, tt.path)
		assert.Equal(t, tt.expectedCode, rr.Code, tt.path)
		assert.Equal(t, tt.expectedBody, rr.Body.String(), tt.path)
	}
}

func TestNewRequiresHandler(t *testing.T) {
	_, err := New(&HTTPServerConfig{}, nil)
	require.Error(t, err)
}
