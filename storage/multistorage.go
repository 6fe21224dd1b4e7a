package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/opcua-server-keystore/interfaces"
)

// MirroredBackend keeps copies of the keystore in several locations.
// Loads come from the first available backend that has the keystore; saves
// go to every available backend and succeed if at least one does.
type MirroredBackend struct {
	backends []interfaces.KeyStoreBackend
	log      *slog.Logger
}

var _ interfaces.KeyStoreBackend = (*MirroredBackend)(nil)

// NewMirroredBackend creates a mirrored backend over backends, in priority order.
func NewMirroredBackend(backends []interfaces.KeyStoreBackend, logger *slog.Logger) *MirroredBackend {
	return &MirroredBackend{
		backends: backends,
		log:      orDiscard(logger),
	}
}

// Load returns the keystore from the first backend that has it. It returns
// ErrKeyStoreNotFound only when every backend is reachable and reports the
// keystore as absent. An unreachable or failing backend that might hold the
// keystore makes Load fail with ErrBackendUnavailable.
func (m *MirroredBackend) Load(ctx context.Context) ([]byte, error) {
	start := time.Now()
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			errs = append(errs, fmt.Errorf("%s: unreachable", backend.Name()))
			continue
		}

		data, err := backend.Load(ctx)
		if err == nil {
			m.log.Info("Loaded keystore",
				slog.String("backend_name", backend.Name()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}
		if errors.Is(err, interfaces.ErrKeyStoreNotFound) {
			continue
		}

		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		m.log.Debug("Failed to load from backend",
			slog.String("backend_name", backend.Name()),
			"err", err)
	}

	if len(m.backends) == 0 {
		return nil, fmt.Errorf("%w: no backends configured", interfaces.ErrBackendUnavailable)
	}
	if len(errs) > 0 {
		m.log.Error("Keystore absent from reachable backends, but some backends failed",
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, errors.Join(errs...))
	}
	return nil, interfaces.ErrKeyStoreNotFound
}

// Save stores data in all available backends.
func (m *MirroredBackend) Save(ctx context.Context, data []byte) error {
	start := time.Now()
	var errs []error
	saved := 0

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		if err := backend.Save(ctx, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Warn("Failed to store to backend",
				slog.String("backend_name", backend.Name()),
				"err", err)
			continue
		}
		saved++
	}

	if saved == 0 {
		m.log.Error("All backends failed to store keystore",
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		if len(errs) == 0 {
			return fmt.Errorf("%w: no reachable backend", interfaces.ErrBackendUnavailable)
		}
		return fmt.Errorf("all backends failed to store keystore: %w", errors.Join(errs...))
	}

	m.log.Info("Stored keystore",
		slog.Int("backends", saved),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Available checks if any backend is available
func (m *MirroredBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend
func (m *MirroredBackend) Name() string {
	return "mirrored"
}

// LocationURI joins the locations of all mirrored backends.
func (m *MirroredBackend) LocationURI() string {
	locations := make([]string, 0, len(m.backends))
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}
	return "mirror:[" + strings.Join(locations, ",") + "]"
}

func orDiscard(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return log
}
