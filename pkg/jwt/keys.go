package jwt

import (
	"context"
	"crypto/rsa"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// LoadPublicKeyFromFile loads an RSA public key from a PEM file
func LoadPublicKeyFromFile(keyPath string) (*rsa.PublicKey, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	return ParsePublicKeyPEM(keyData)
}

// LoadPublicKeyFromURL fetches a PEM encoded RSA public key. A bare service
// address gets /public-key.pem appended.
func LoadPublicKeyFromURL(ctx context.Context, rawURL string, timeout time.Duration) (*rsa.PublicKey, error) {
	endpoint := rawURL
	if !strings.HasSuffix(endpoint, ".pem") {
		endpoint = strings.TrimRight(endpoint, "/") + "/public-key.pem"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create public key request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch public key from auth service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth service returned status %d when fetching public key", resp.StatusCode)
	}

	keyData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key response: %w", err)
	}
	return ParsePublicKeyPEM(keyData)
}

// ParsePublicKeyPEM parses a PKIX or PKCS1 encoded RSA public key
func ParsePublicKeyPEM(keyData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode public key PEM")
	}

	if block.Type != "PUBLIC KEY" && block.Type != "RSA PUBLIC KEY" {
		return nil, fmt.Errorf("unsupported key type: %s", block.Type)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
	}
	return publicKey, nil
}

// KeySource holds the current verification key. A file path wins over a URL;
// only URL sources are refreshed.
type KeySource struct {
	path    string
	url     string
	timeout time.Duration
	logger  *zap.Logger

	mu  sync.RWMutex
	key *rsa.PublicKey
}

// NewKeySource creates an unloaded key source; call Refresh before use
func NewKeySource(path, url string, timeout time.Duration, logger *zap.Logger) *KeySource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeySource{path: path, url: url, timeout: timeout, logger: logger}
}

// NewStaticKeySource wraps an already loaded key
func NewStaticKeySource(key *rsa.PublicKey) *KeySource {
	return &KeySource{key: key, logger: zap.NewNop()}
}

// PublicKey returns the current key, nil before the first successful load
func (s *KeySource) PublicKey() *rsa.PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// Refresh reloads the key from its file or URL
func (s *KeySource) Refresh(ctx context.Context) error {
	var (
		key *rsa.PublicKey
		err error
	)
	switch {
	case s.path != "":
		key, err = LoadPublicKeyFromFile(s.path)
	case s.url != "":
		key, err = LoadPublicKeyFromURL(ctx, s.url, s.timeout)
	default:
		return fmt.Errorf("no public key path or url configured")
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
	return nil
}

// RunRefresh refreshes a URL sourced key every interval until ctx is done.
// A failed refresh keeps the previous key.
func (s *KeySource) RunRefresh(ctx context.Context, interval time.Duration) {
	if s.path != "" || s.url == "" || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error("Failed to refresh JWT public key", zap.Error(err))
				continue
			}
			s.logger.Info("JWT public key refreshed")
		}
	}
}
