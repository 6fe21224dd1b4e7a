package keystore

import (
	"context"
	"crypto/x509"
	"sync"
	"testing"

	"github.com/ruteri/opcua-server-keystore/cryptoutils"
	"github.com/ruteri/opcua-server-keystore/interfaces"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testIdentityOnce sync.Once
	testKeyPair      *cryptoutils.KeyPair
	testCert         *x509.Certificate
	testIdentityErr  error
)

// testIdentity returns a key pair and matching self-signed certificate shared by all tests.
func testIdentity(t *testing.T) (*cryptoutils.KeyPair, *x509.Certificate) {
	t.Helper()
	testIdentityOnce.Do(func() {
		testKeyPair, testIdentityErr = cryptoutils.GenerateRSAKeyPair(2048)
		if testIdentityErr != nil {
			return
		}
		testCert, testIdentityErr = cryptoutils.CreateSelfSignedCertificate(testKeyPair, cryptoutils.SelfSignedCertificateRequest{
			Subject: cryptoutils.CertificateSubject{CommonName: "keystore test"},
		})
	})
	require.NoError(t, testIdentityErr)
	return testKeyPair, testCert
}

// MockIdentityProvider implements interfaces.IdentityProvider for testing
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) InitializeKeystore(store interfaces.KeyStoreWriter) error {
	args := m.Called(store)
	return args.Error(0)
}

func (m *MockIdentityProvider) DefaultAlias() string {
	return "test"
}

func (m *MockIdentityProvider) DefaultEntryPassword() []byte {
	return []byte("entry-password")
}

func (m *MockIdentityProvider) GenerateSelfSignedCertificate() (*cryptoutils.KeyPair, *x509.Certificate, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*cryptoutils.KeyPair), args.Get(1).(*x509.Certificate), args.Error(2)
}

// expectInitialize makes the mock store the shared test identity under "test".
func expectInitialize(t *testing.T, provider *MockIdentityProvider) {
	keyPair, cert := testIdentity(t)
	provider.On("InitializeKeystore", mock.Anything).Run(func(args mock.Arguments) {
		store := args.Get(0).(interfaces.KeyStoreWriter)
		require.NoError(t, store.SetKeyEntry("test", keyPair.PrivateKey, []byte("entry-password"), []*x509.Certificate{cert}))
	}).Return(nil).Once()
}

// memoryBackend is an in-memory interfaces.KeyStoreBackend
type memoryBackend struct {
	mu      sync.Mutex
	data    []byte
	loadErr error
	saveErr error
	saves   int
}

func (b *memoryBackend) Load(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	if b.data == nil {
		return nil, interfaces.ErrKeyStoreNotFound
	}
	return append([]byte{}, b.data...), nil
}

func (b *memoryBackend) Save(ctx context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return b.saveErr
	}
	b.saves++
	b.data = append([]byte{}, data...)
	return nil
}

func (b *memoryBackend) Available(ctx context.Context) bool { return true }

func (b *memoryBackend) Name() string { return "memory" }

func (b *memoryBackend) LocationURI() string { return "memory:" }
