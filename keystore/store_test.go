package keystore

import (
	"crypto/x509"
	"testing"

	"github.com/ruteri/opcua-server-keystore/cryptoutils"
	"github.com/ruteri/opcua-server-keystore/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_EncodeDecode(t *testing.T) {
	keyPair, cert := testIdentity(t)

	store := NewStore()
	require.NoError(t, store.SetKeyEntry("server", keyPair.PrivateKey, []byte("password"), []*x509.Certificate{cert}))
	require.NoError(t, store.SetKeyEntry("client", keyPair.PrivateKey, []byte("other"), []*x509.Certificate{cert}))

	encoded, err := store.Encode([]byte("store-password"))
	require.NoError(t, err)
	assert.Equal(t, "OKS1", string(encoded[:4]))
	assert.NotContains(t, string(encoded), "server", "aliases must not leak in plaintext")

	decoded, err := DecodeStore(encoded, []byte("store-password"))
	require.NoError(t, err)
	assert.Equal(t, []string{"client", "server"}, decoded.Aliases())
	assert.True(t, decoded.ContainsAlias("server"))

	chain, found := decoded.CertificateChain("server")
	require.True(t, found)
	assert.Equal(t, cert.Raw, chain[0].Raw)

	createdAt, found := decoded.CreatedAt("server")
	require.True(t, found)
	assert.False(t, createdAt.IsZero())

	loaded, err := decoded.KeyPair("server", []byte("password"))
	require.NoError(t, err)
	assert.True(t, cryptoutils.PublicKeysEqual(keyPair.PublicKey, loaded.PublicKey))

	_, err = decoded.KeyPair("client", []byte("password"))
	require.ErrorIs(t, err, interfaces.ErrWrongPassword)
}

func TestStore_DecodeFailures(t *testing.T) {
	store := NewStore()
	encoded, err := store.Encode([]byte("store-password"))
	require.NoError(t, err)

	_, err = DecodeStore(encoded, []byte("wrong"))
	require.ErrorIs(t, err, interfaces.ErrStoreCorrupt)

	_, err = DecodeStore([]byte("PK\x03\x04zip file"), []byte("store-password"))
	require.ErrorIs(t, err, interfaces.ErrStoreCorrupt)

	_, err = DecodeStore(nil, []byte("store-password"))
	require.ErrorIs(t, err, interfaces.ErrStoreCorrupt)
}

func TestStore_SetKeyEntryValidation(t *testing.T) {
	keyPair, cert := testIdentity(t)
	other, err := cryptoutils.GenerateRSAKeyPair(2048)
	require.NoError(t, err)

	store := NewStore()
	require.Error(t, store.SetKeyEntry("", keyPair.PrivateKey, nil, []*x509.Certificate{cert}))
	require.Error(t, store.SetKeyEntry("a", nil, nil, []*x509.Certificate{cert}))
	require.Error(t, store.SetKeyEntry("a", keyPair.PrivateKey, nil, nil))
	require.Error(t, store.SetKeyEntry("a", other.PrivateKey, nil, []*x509.Certificate{cert}))
	assert.Empty(t, store.Aliases())
}

func TestStore_EntryBoundToAlias(t *testing.T) {
	keyPair, cert := testIdentity(t)

	store := NewStore()
	require.NoError(t, store.SetKeyEntry("server", keyPair.PrivateKey, []byte("password"), []*x509.Certificate{cert}))

	// Moving a sealed key under another alias must not open.
	store.entries["moved"] = store.entries["server"]
	_, err := store.KeyPair("moved", []byte("password"))
	require.ErrorIs(t, err, interfaces.ErrWrongPassword)
}
