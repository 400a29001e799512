package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func pkixPEM(t *testing.T, pub *rsa.PublicKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func TestParsePublicKeyPEM(t *testing.T) {
	key := generateKey(t)

	t.Run("PKIX", func(t *testing.T) {
		parsed, err := ParsePublicKeyPEM(pkixPEM(t, &key.PublicKey))
		require.NoError(t, err)
		assert.True(t, key.PublicKey.Equal(parsed))
	})

	t.Run("PKCS1", func(t *testing.T) {
		data := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&key.PublicKey)})
		parsed, err := ParsePublicKeyPEM(data)
		require.NoError(t, err)
		assert.True(t, key.PublicKey.Equal(parsed))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParsePublicKeyPEM([]byte("not a key"))
		assert.EqualError(t, err, "failed to decode public key PEM")
	})

	t.Run("unsupported block", func(t *testing.T) {
		_, err := ParsePublicKeyPEM(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1}}))
		assert.EqualError(t, err, "unsupported key type: CERTIFICATE")
	})

	t.Run("corrupt body", func(t *testing.T) {
		_, err := ParsePublicKeyPEM(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: []byte{1, 2, 3}}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse RSA public key")
	})
}

func TestLoadPublicKeyFromFile(t *testing.T) {
	key := generateKey(t)
	path := filepath.Join(t.TempDir(), "public.pem")
	require.NoError(t, os.WriteFile(path, pkixPEM(t, &key.PublicKey), 0o600))

	parsed, err := LoadPublicKeyFromFile(path)
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(parsed))

	_, err = LoadPublicKeyFromFile(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)
}

func TestKeySource_RefreshFromURL(t *testing.T) {
	first := generateKey(t)
	second := generateKey(t)
	current := first

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/public-key.pem", r.URL.Path)
		_, _ = w.Write(pkixPEM(t, &current.PublicKey))
	}))
	defer server.Close()

	src := NewKeySource("", server.URL, time.Second, nil)
	assert.Nil(t, src.PublicKey())

	require.NoError(t, src.Refresh(context.Background()))
	assert.True(t, first.PublicKey.Equal(src.PublicKey()))

	current = second
	require.NoError(t, src.Refresh(context.Background()))
	assert.True(t, second.PublicKey.Equal(src.PublicKey()))
}

func TestKeySource_FailedRefreshKeepsKey(t *testing.T) {
	key := generateKey(t)
	fail := false

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(pkixPEM(t, &key.PublicKey))
	}))
	defer server.Close()

	src := NewKeySource("", server.URL+"/", time.Second, nil)
	require.NoError(t, src.Refresh(context.Background()))

	fail = true
	err := src.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.True(t, key.PublicKey.Equal(src.PublicKey()))
}

func TestKeySource_NothingConfigured(t *testing.T) {
	err := NewKeySource("", "", 0, nil).Refresh(context.Background())
	assert.Error(t, err)
}
