package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/opcua-server-keystore/interfaces"
)

// IPFSBackend stores the keystore as a file in the mutable file system (MFS)
// of an IPFS node. The keystore is sealed, so publishing its CID does not
// expose key material.
type IPFSBackend struct {
	shell       *shell.Shell
	apiAddr     string
	mfsPath     string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates a new IPFS storage backend talking to the node API
// at host:port and storing the keystore at mfsPath.
func NewIPFSBackend(host, port, mfsPath string, timeout time.Duration, log *slog.Logger) (*IPFSBackend, error) {
	if port == "" {
		port = "5001"
	}
	if mfsPath == "" || mfsPath == "/" {
		return nil, errors.New("empty MFS path")
	}
	if !strings.HasPrefix(mfsPath, "/") {
		mfsPath = "/" + mfsPath
	}

	apiAddr := fmt.Sprintf("%s:%s", host, port)
	sh := shell.NewShell(apiAddr)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}

	return &IPFSBackend{
		shell:       sh,
		apiAddr:     apiAddr,
		mfsPath:     mfsPath,
		log:         orDiscard(log),
		locationURI: fmt.Sprintf("ipfs://%s%s", apiAddr, mfsPath),
	}, nil
}

// Load reads the keystore file from MFS. Returns ErrKeyStoreNotFound if the
// file doesn't exist or ErrBackendUnavailable if the node is not reachable.
func (b *IPFSBackend) Load(ctx context.Context) ([]byte, error) {
	start := time.Now()

	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable", slog.String("api", b.apiAddr))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := b.shell.FilesRead(ctx, b.mfsPath)
	if err != nil {
		if isMFSNotFound(err) {
			b.log.Debug("Keystore not found in MFS",
				slog.String("path", b.mfsPath),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrKeyStoreNotFound
		}
		return nil, fmt.Errorf("failed to read from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read IPFS content: %w", err)
	}

	b.log.Debug("Fetched keystore from IPFS",
		slog.String("path", b.mfsPath),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Save writes the keystore file into MFS, creating parent directories.
func (b *IPFSBackend) Save(ctx context.Context, data []byte) error {
	err := b.shell.FilesWrite(ctx, b.mfsPath, bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return fmt.Errorf("failed to write to IPFS: %w", err)
	}

	if stat, err := b.shell.FilesStat(ctx, b.mfsPath); err == nil {
		b.log.Info("Stored keystore in IPFS",
			slog.String("path", b.mfsPath),
			slog.String("cid", stat.Hash))
	}

	return nil
}

// Available checks if the IPFS node is accessible.
func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

// Name returns a unique identifier for this storage backend.
func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s", b.apiAddr)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

func isMFSNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "file does not exist") || strings.Contains(msg, "no link named")
}
