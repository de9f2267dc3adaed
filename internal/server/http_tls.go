package server

import (
	"crypto/tls"
	"fmt"
	"os"
	"sync"
	"time"

	"careeradvisor/internal/errors"
)

// certificateStore serves the server key pair and reloads it when either
// file's modification time changes. A failed reload keeps the previous pair.
type certificateStore struct {
	certFile string
	keyFile  string
	logger   *errors.Logger

	mu       sync.RWMutex
	cert     *tls.Certificate
	certMod  time.Time
	keyMod   time.Time
	reloads  int
	failures int
}

func newCertificateStore(certFile, keyFile string, logger *errors.Logger) (*certificateStore, error) {
	cs := &certificateStore{certFile: certFile, keyFile: keyFile, logger: logger}
	if err := cs.load(); err != nil {
		return nil, err
	}
	return cs, nil
}

func (cs *certificateStore) load() error {
	certMod, keyMod, err := cs.modTimes()
	if err != nil {
		return err
	}

	cert, err := tls.LoadX509KeyPair(cs.certFile, cs.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load server cert/key from files: %w", err)
	}

	cs.mu.Lock()
	cs.cert = &cert
	cs.certMod = certMod
	cs.keyMod = keyMod
	cs.mu.Unlock()
	return nil
}

func (cs *certificateStore) modTimes() (time.Time, time.Time, error) {
	certInfo, err := os.Stat(cs.certFile)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to stat certificate file: %w", err)
	}
	keyInfo, err := os.Stat(cs.keyFile)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to stat key file: %w", err)
	}
	return certInfo.ModTime(), keyInfo.ModTime(), nil
}

func (cs *certificateStore) changed() bool {
	certMod, keyMod, err := cs.modTimes()
	if err != nil {
		return false
	}
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return !certMod.Equal(cs.certMod) || !keyMod.Equal(cs.keyMod)
}

// GetCertificate implements tls.Config.GetCertificate.
func (cs *certificateStore) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	if cs.changed() {
		err := cs.load()
		cs.mu.Lock()
		if err != nil {
			cs.failures++
		} else {
			cs.reloads++
		}
		cs.mu.Unlock()

		if err != nil {
			cs.logger.LogError(err, "Certificate reload failed, keeping previous certificate")
		} else {
			cs.logger.Info("Certificate reloaded", "cert_file", cs.certFile)
		}
	}

	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.cert, nil
}

func (cs *certificateStore) stats() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	stats := map[string]any{
		"cert_file":       cs.certFile,
		"reload_count":    cs.reloads,
		"reload_failures": cs.failures,
	}
	if cs.cert != nil && cs.cert.Leaf != nil {
		stats["not_after"] = cs.cert.Leaf.NotAfter
		stats["time_to_expiry"] = time.Until(cs.cert.Leaf.NotAfter).Round(time.Second).String()
	}
	return stats
}

// TLSEnabled reports whether both certificate and key files are configured.
func (s *Server) TLSEnabled() bool {
	return s.AppConfig.Server.TLSCertFile != "" && s.AppConfig.Server.TLSKeyFile != ""
}

// buildTLSConfig creates the TLS configuration
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	store, err := newCertificateStore(s.AppConfig.Server.TLSCertFile, s.AppConfig.Server.TLSKeyFile, s.Logger)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to load TLS certificate", err)
	}
	s.certificates = store

	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: store.GetCertificate,
	}, nil
}
