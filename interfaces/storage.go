package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// StorageLocation represents the URI of a keystore location.
type StorageLocation struct {
	Raw    string     // Original URI or path
	Scheme string     // Protocol
	Host   string     // Hostname, bucket or node address
	Path   string     // Resource path
	Query  url.Values // Query parameters
	User   *url.Userinfo
}

// NewStorageLocation parses a location URI. A value without a scheme is
// treated as a filesystem path.
func NewStorageLocation(uri string) (StorageLocation, error) {
	if uri == "" {
		return StorageLocation{}, fmt.Errorf("%w: empty location", ErrInvalidLocationURI)
	}

	if !strings.Contains(uri, "://") {
		abs, err := filepath.Abs(uri)
		if err != nil {
			return StorageLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
		}
		return StorageLocation{
			Raw:    uri,
			Scheme: "file",
			Path:   abs,
			Query:  url.Values{},
		}, nil
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case "file", "s3", "vault", "ipfs":
		// Valid scheme
	default:
		return StorageLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	return StorageLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		User:   parsed.User,
	}, nil
}

// String returns the original URI string.
func (loc StorageLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StorageLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StorageLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

var (
	// ErrKeyStoreNotFound is returned by a backend when nothing is stored at its location.
	ErrKeyStoreNotFound = errors.New("keystore not found")

	// ErrBackendUnavailable is returned when a storage backend is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// KeyStoreBackend stores a single encoded keystore at a fixed location.
type KeyStoreBackend interface {
	// Load returns the stored keystore bytes, or ErrKeyStoreNotFound.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the stored keystore bytes.
	Save(ctx context.Context, data []byte) error

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}
