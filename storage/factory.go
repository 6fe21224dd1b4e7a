package storage

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/opcua-server-keystore/interfaces"
)

// Factory creates keystore backends from location URIs.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a new factory instance.
func NewFactory(logger *slog.Logger) *Factory {
	return &Factory{log: orDiscard(logger)}
}

// BackendFor creates a storage backend from a location URI or plain path.
// The URI format is [scheme]://[auth@]host[:port][/path][?params].
//
// Supported schemes:
//   - file:// - Local filesystem (also used for plain paths)
//   - s3:// - Amazon S3 or compatible object storage
//   - vault:// - HashiCorp Vault KV v2 secret
//   - ipfs:// - File in an IPFS node's MFS
func (f *Factory) BackendFor(location string) (interfaces.KeyStoreBackend, error) {
	loc, err := interfaces.NewStorageLocation(location)
	if err != nil {
		return nil, err
	}

	f.log.Debug("Creating keystore backend",
		slog.String("scheme", loc.Scheme),
		slog.String("host", loc.Host),
		slog.String("path", loc.Path))

	switch loc.Scheme {
	case "file":
		return f.createFileBackend(loc)
	case "s3":
		return f.createS3Backend(loc)
	case "vault":
		return f.createVaultBackend(loc)
	case "ipfs":
		return f.createIPFSBackend(loc)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", interfaces.ErrInvalidLocationURI, loc.Scheme)
	}
}

// CreateMirrored creates a mirrored backend from a list of location URIs.
// Locations that cannot be parsed are skipped with a warning. Returns an
// error if no valid backend could be created.
func (f *Factory) CreateMirrored(locations []string) (interfaces.KeyStoreBackend, error) {
	backends := make([]interfaces.KeyStoreBackend, 0, len(locations))

	for _, location := range locations {
		backend, err := f.BackendFor(location)
		if err != nil {
			f.log.Warn("Failed to create storage backend",
				"err", err,
				slog.String("location", location))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("%w: no valid storage backends created", interfaces.ErrInvalidLocationURI)
	}
	if len(backends) == 1 {
		return backends[0], nil
	}

	return NewMirroredBackend(backends, f.log), nil
}

// createFileBackend creates a file system backend.
// URI format: file:///absolute/path/keystore.oks or a plain path.
func (f *Factory) createFileBackend(loc interfaces.StorageLocation) (interfaces.KeyStoreBackend, error) {
	path := loc.Path
	if loc.Host != "" && loc.Host != "localhost" {
		// file://./relative/path
		path = loc.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI %s", interfaces.ErrInvalidLocationURI, loc)
	}

	return NewFileBackend(path, f.log)
}

// createS3Backend creates an S3 or S3-compatible backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket/object/key?region=us-west-2&endpoint=https://minio:9000&path_style=true
func (f *Factory) createS3Backend(loc interfaces.StorageLocation) (interfaces.KeyStoreBackend, error) {
	cfg := S3Config{
		Bucket:    loc.Host,
		Key:       strings.TrimPrefix(loc.Path, "/"),
		Region:    loc.GetParam("region"),
		Endpoint:  loc.GetParam("endpoint"),
		PathStyle: loc.GetParamBool("path_style"),
	}

	if loc.User != nil {
		cfg.AccessKey = loc.User.Username()
		cfg.SecretKey, _ = loc.User.Password()
		f.log.Debug("Using embedded S3 credentials")
	} else {
		f.log.Debug("No S3 credentials in URI, using the default credential chain")
	}

	backend, err := NewS3Backend(cfg, f.log)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}
	return backend, nil
}

// createVaultBackend creates a Vault KV v2 backend.
// URI format: vault://[TOKEN@]host:port/mount/secret/path?tls=false
// The first path segment is the mount, the rest is the secret path.
func (f *Factory) createVaultBackend(loc interfaces.StorageLocation) (interfaces.KeyStoreBackend, error) {
	scheme := "https"
	if loc.GetParam("tls") == "false" {
		scheme = "http"
	}
	address := fmt.Sprintf("%s://%s", scheme, loc.Host)

	mount, secretPath, _ := strings.Cut(strings.TrimPrefix(loc.Path, "/"), "/")

	var token string
	if loc.User != nil {
		token = loc.User.Username()
	}

	backend, err := NewVaultBackend(address, mount, secretPath, token, f.log)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}
	return backend, nil
}

// createIPFSBackend creates an IPFS MFS backend.
// URI format: ipfs://host:port/mfs/path?timeout=30s
func (f *Factory) createIPFSBackend(loc interfaces.StorageLocation) (interfaces.KeyStoreBackend, error) {
	host, port := loc.Host, ""
	if h, p, ok := strings.Cut(loc.Host, ":"); ok {
		host, port = h, p
	}
	if host == "" {
		host = "localhost"
	}

	timeout := 30 * time.Second
	if raw := loc.GetParam("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timeout %q: %v", interfaces.ErrInvalidLocationURI, raw, err)
		}
		timeout = parsed
	}

	backend, err := NewIPFSBackend(host, port, loc.Path, timeout, f.log)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}
	return backend, nil
}
