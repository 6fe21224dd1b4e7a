package keystore

import (
	"context"
	"crypto/x509"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/opcua-server-keystore/cryptoutils"
	"github.com/ruteri/opcua-server-keystore/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testSettings() interfaces.Settings {
	return interfaces.Settings{
		StorageLocation: "memory:",
		StorePassword:   []byte("store-password"),
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpen_InitializesEmptyLocation(t *testing.T) {
	keyPair, cert := testIdentity(t)
	backend := &memoryBackend{}
	provider := new(MockIdentityProvider)
	expectInitialize(t, provider)

	manager, err := Open(context.Background(), testSettings(), provider, backend, testLogger())
	require.NoError(t, err)
	provider.AssertExpectations(t)

	assert.Equal(t, interfaces.StatePersisted, manager.State())
	assert.Equal(t, 1, backend.saves)
	assert.Equal(t, []string{"test"}, manager.Aliases())
	assert.Equal(t, "test", manager.DefaultAlias())

	loaded, err := manager.DefaultKeyPair()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, cryptoutils.PublicKeysEqual(keyPair.PublicKey, loaded.PublicKey))

	chain, found := manager.DefaultCertificateChain()
	require.True(t, found)
	require.Len(t, chain, 1)
	assert.Equal(t, cert.Raw, chain[0].Raw)
}

func TestOpen_LoadsExistingWithoutInitializing(t *testing.T) {
	keyPair, cert := testIdentity(t)

	store := NewStore()
	require.NoError(t, store.SetKeyEntry("test", keyPair.PrivateKey, []byte("entry-password"), []*x509.Certificate{cert}))
	encoded, err := store.Encode([]byte("store-password"))
	require.NoError(t, err)

	backend := &memoryBackend{data: encoded}
	provider := new(MockIdentityProvider)

	manager, err := Open(context.Background(), testSettings(), provider, backend, testLogger())
	require.NoError(t, err)

	provider.AssertNotCalled(t, "InitializeKeystore", mock.Anything)
	assert.Equal(t, interfaces.StateLoaded, manager.State())
	assert.Equal(t, 0, backend.saves)

	loaded, err := manager.KeyPair("test", []byte("entry-password"))
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, cryptoutils.PublicKeysEqual(keyPair.PublicKey, loaded.PublicKey))
}

func TestOpen_Idempotent(t *testing.T) {
	backend := &memoryBackend{}
	provider := new(MockIdentityProvider)
	expectInitialize(t, provider)

	first, err := Open(context.Background(), testSettings(), provider, backend, testLogger())
	require.NoError(t, err)
	second, err := Open(context.Background(), testSettings(), provider, backend, testLogger())
	require.NoError(t, err)

	provider.AssertNumberOfCalls(t, "InitializeKeystore", 1)
	assert.Equal(t, 1, backend.saves)

	firstChain, _ := first.DefaultCertificateChain()
	secondChain, _ := second.DefaultCertificateChain()
	assert.Equal(t, firstChain[0].Raw, secondChain[0].Raw)

	firstKey, err := first.DefaultKeyPair()
	require.NoError(t, err)
	secondKey, err := second.DefaultKeyPair()
	require.NoError(t, err)
	assert.True(t, cryptoutils.PublicKeysEqual(firstKey.PublicKey, secondKey.PublicKey))
}

func TestOpen_CorruptStore(t *testing.T) {
	keyPair, cert := testIdentity(t)
	store := NewStore()
	require.NoError(t, store.SetKeyEntry("test", keyPair.PrivateKey, []byte("entry-password"), []*x509.Certificate{cert}))
	encoded, err := store.Encode([]byte("another-password"))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "garbage", data: []byte("this is not a keystore")},
		{name: "wrong store password", data: encoded},
		{name: "truncated", data: encoded[:10]},
		{name: "empty", data: []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &memoryBackend{data: tt.data}
			provider := new(MockIdentityProvider)

			manager, err := Open(context.Background(), testSettings(), provider, backend, testLogger())
			require.ErrorIs(t, err, interfaces.ErrStoreCorrupt)
			assert.Nil(t, manager)

			provider.AssertNotCalled(t, "InitializeKeystore", mock.Anything)
			assert.Equal(t, 0, backend.saves)
			assert.Equal(t, tt.data, backend.data, "corrupt store must not be overwritten")
		})
	}
}

func TestOpen_InitializeFailureWritesNothing(t *testing.T) {
	backend := &memoryBackend{}
	provider := new(MockIdentityProvider)
	provider.On("InitializeKeystore", mock.Anything).Return(interfaces.ErrKeyGeneration).Once()

	manager, err := Open(context.Background(), testSettings(), provider, backend, testLogger())
	require.ErrorIs(t, err, interfaces.ErrKeyGeneration)
	assert.Nil(t, manager)
	assert.Equal(t, 0, backend.saves)
	assert.Nil(t, backend.data)
}

func TestOpen_PersistenceFailureKeepsIdentity(t *testing.T) {
	backend := &memoryBackend{saveErr: errors.New("read-only filesystem")}
	provider := new(MockIdentityProvider)
	expectInitialize(t, provider)

	manager, err := Open(context.Background(), testSettings(), provider, backend, testLogger())
	require.ErrorIs(t, err, interfaces.ErrPersistence)
	require.NotNil(t, manager)
	assert.Equal(t, interfaces.StateInitialized, manager.State())

	keyPair, err := manager.DefaultKeyPair()
	require.NoError(t, err)
	assert.NotNil(t, keyPair)
}

func TestOpen_BackendLoadError(t *testing.T) {
	backend := &memoryBackend{loadErr: interfaces.ErrBackendUnavailable}
	provider := new(MockIdentityProvider)

	_, err := Open(context.Background(), testSettings(), provider, backend, testLogger())
	require.ErrorIs(t, err, interfaces.ErrBackendUnavailable)
	provider.AssertNotCalled(t, "InitializeKeystore", mock.Anything)
	assert.Equal(t, 0, backend.saves)
}

func TestOpen_RequiresCollaborators(t *testing.T) {
	_, err := Open(context.Background(), testSettings(), nil, &memoryBackend{}, nil)
	require.Error(t, err)

	_, err = Open(context.Background(), testSettings(), new(MockIdentityProvider), nil, nil)
	require.Error(t, err)
}

func TestManager_Lookups(t *testing.T) {
	backend := &memoryBackend{}
	provider := new(MockIdentityProvider)
	expectInitialize(t, provider)

	manager, err := Open(context.Background(), testSettings(), provider, backend, nil)
	require.NoError(t, err)

	keyPair, err := manager.KeyPair("nonexistent", []byte("entry-password"))
	require.NoError(t, err)
	assert.Nil(t, keyPair)

	_, err = manager.KeyPair("test", []byte("wrong"))
	require.ErrorIs(t, err, interfaces.ErrWrongPassword)

	chain, found := manager.CertificateChain("nonexistent")
	assert.False(t, found)
	assert.Nil(t, chain)

	assert.Equal(t, "memory:", manager.LocationURI())
}
