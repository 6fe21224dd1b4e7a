package keystore

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ruteri/opcua-server-keystore/cryptoutils"
	"github.com/ruteri/opcua-server-keystore/interfaces"
)

// storeMagic prefixes every encoded keystore.
var storeMagic = []byte("OKS1")

const storeFormatVersion = 1

// entry is one identity record. The private key is kept sealed with the
// entry password even in memory.
type entry struct {
	sealedKey []byte
	chain     []*x509.Certificate
	createdAt time.Time
}

type encodedEntry struct {
	SealedKey []byte    `json:"key"`
	Chain     [][]byte  `json:"chain"`
	CreatedAt time.Time `json:"created_at"`
}

type encodedStore struct {
	Version int                     `json:"version"`
	Entries map[string]encodedEntry `json:"entries"`
}

// Store is an in-memory keystore mapping aliases to identity records.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

var _ interfaces.KeyStoreWriter = (*Store)(nil)

// NewStore creates an empty keystore.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// SetKeyEntry stores key and chain under alias, sealing the private key with
// password. An existing entry under alias is replaced.
func (s *Store) SetKeyEntry(alias string, key crypto.Signer, password []byte, chain []*x509.Certificate) error {
	if alias == "" {
		return errors.New("empty alias")
	}
	if key == nil {
		return errors.New("missing private key")
	}
	if len(chain) == 0 {
		return errors.New("empty certificate chain")
	}
	if !cryptoutils.PublicKeysEqual(chain[0].PublicKey, key.Public()) {
		return errors.New("private key doesn't match leaf certificate")
	}

	der, err := cryptoutils.MarshalPrivateKey(key)
	if err != nil {
		return err
	}
	defer cryptoutils.Wipe(der)

	sealed, err := cryptoutils.SealWithPassword(password, der, []byte(alias))
	if err != nil {
		return fmt.Errorf("failed to seal private key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[alias] = &entry{
		sealedKey: sealed,
		chain:     append([]*x509.Certificate(nil), chain...),
		createdAt: time.Now().UTC(),
	}
	return nil
}

// KeyPair returns the key pair stored under alias. It returns (nil, nil)
// when the alias is absent and ErrWrongPassword when password does not open
// the entry.
func (s *Store) KeyPair(alias string, password []byte) (*cryptoutils.KeyPair, error) {
	s.mu.RLock()
	e, found := s.entries[alias]
	s.mu.RUnlock()
	if !found {
		return nil, nil
	}

	der, err := cryptoutils.OpenWithPassword(password, e.sealedKey, []byte(alias))
	if err != nil {
		if errors.Is(err, cryptoutils.ErrSealOpen) {
			return nil, fmt.Errorf("%w: alias %q", interfaces.ErrWrongPassword, alias)
		}
		return nil, err
	}
	defer cryptoutils.Wipe(der)

	return cryptoutils.ParsePrivateKey(der)
}

// CertificateChain returns the certificate chain stored under alias, leaf first.
func (s *Store) CertificateChain(alias string) ([]*x509.Certificate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, found := s.entries[alias]
	if !found {
		return nil, false
	}
	return append([]*x509.Certificate(nil), e.chain...), true
}

// CreatedAt returns when the entry under alias was created.
func (s *Store) CreatedAt(alias string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, found := s.entries[alias]
	if !found {
		return time.Time{}, false
	}
	return e.createdAt, true
}

// ContainsAlias reports whether an entry exists under alias.
func (s *Store) ContainsAlias(alias string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, found := s.entries[alias]
	return found
}

// Aliases returns all aliases in sorted order.
func (s *Store) Aliases() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	aliases := make([]string, 0, len(s.entries))
	for alias := range s.entries {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// Encode serializes and seals the keystore with storePassword.
//
// Format: ["OKS1"][salt][iv][ciphertext of the JSON entry table]
func (s *Store) Encode(storePassword []byte) ([]byte, error) {
	s.mu.RLock()
	table := encodedStore{
		Version: storeFormatVersion,
		Entries: make(map[string]encodedEntry, len(s.entries)),
	}
	for alias, e := range s.entries {
		chain := make([][]byte, len(e.chain))
		for i, cert := range e.chain {
			chain[i] = cert.Raw
		}
		table.Entries[alias] = encodedEntry{
			SealedKey: e.sealedKey,
			Chain:     chain,
			CreatedAt: e.createdAt,
		}
	}
	s.mu.RUnlock()

	plaintext, err := json.Marshal(table)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keystore: %w", err)
	}

	sealed, err := cryptoutils.SealWithPassword(storePassword, plaintext, storeMagic)
	if err != nil {
		return nil, fmt.Errorf("failed to seal keystore: %w", err)
	}

	return append(append([]byte{}, storeMagic...), sealed...), nil
}

// DecodeStore opens data produced by Encode. Any failure, including a wrong
// store password, is reported as ErrStoreCorrupt.
func DecodeStore(data, storePassword []byte) (*Store, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty keystore data", interfaces.ErrStoreCorrupt)
	}
	if !bytes.HasPrefix(data, storeMagic) {
		return nil, fmt.Errorf("%w: unrecognized keystore format", interfaces.ErrStoreCorrupt)
	}

	plaintext, err := cryptoutils.OpenWithPassword(storePassword, data[len(storeMagic):], storeMagic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreCorrupt, err)
	}

	var table encodedStore
	if err := json.Unmarshal(plaintext, &table); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreCorrupt, err)
	}
	if table.Version != storeFormatVersion {
		return nil, fmt.Errorf("%w: unsupported keystore version %d", interfaces.ErrStoreCorrupt, table.Version)
	}

	store := NewStore()
	for alias, encoded := range table.Entries {
		if len(encoded.Chain) == 0 {
			return nil, fmt.Errorf("%w: alias %q has no certificate chain", interfaces.ErrStoreCorrupt, alias)
		}

		chain := make([]*x509.Certificate, len(encoded.Chain))
		for i, der := range encoded.Chain {
			cert, err := x509.ParseCertificate(der)
			if err != nil {
				return nil, fmt.Errorf("%w: alias %q: %v", interfaces.ErrStoreCorrupt, alias, err)
			}
			chain[i] = cert
		}

		store.entries[alias] = &entry{
			sealedKey: encoded.SealedKey,
			chain:     chain,
			createdAt: encoded.CreatedAt,
		}
	}

	return store, nil
}
