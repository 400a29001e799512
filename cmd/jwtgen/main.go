// Command jwtgen signs RS256 tokens accepted by the clan service, for local calls against the API.
package main

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "shard-legends-auth"

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file %s: %w", path, err)
	}

	block, _ := pem.Decode(keyBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM private key from %s", path)
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key from %s: %w", path, err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%s does not hold an RSA key", path)
		}
		return rsaKey, nil
	default:
		return nil, fmt.Errorf("unsupported key type %s in %s", block.Type, path)
	}
}

// generateToken signs a token whose subject is the numeric user id
func generateToken(key *rsa.PrivateKey, userID int, ttl time.Duration, now time.Time) (string, string, error) {
	jti := uuid.NewString()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   strconv.Itoa(userID),
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, jti, nil
}

func main() {
	var (
		userID  int
		keyPath string
		outPath string
		ttl     time.Duration
	)

	flag.IntVar(&userID, "user", 0, "User id placed in the sub claim")
	flag.StringVar(&keyPath, "key", "private_key", "PEM encoded RSA private key")
	flag.StringVar(&outPath, "out", "", "Write the token to this file instead of stdout")
	flag.DurationVar(&ttl, "ttl", 720*time.Hour, "Token lifetime")
	flag.Parse()

	if userID <= 0 {
		log.Fatal("--user must be a positive user id")
	}

	key, err := loadPrivateKey(keyPath)
	if err != nil {
		log.Fatal(err)
	}

	token, jti, err := generateToken(key, userID, ttl, time.Now())
	if err != nil {
		log.Fatal(err)
	}

	if outPath == "" {
		fmt.Println(token)
		return
	}

	if err := os.WriteFile(outPath, []byte(token), 0o600); err != nil {
		log.Fatalf("failed to write token to file %s: %v", outPath, err)
	}
	absPath, _ := filepath.Abs(outPath)
	fmt.Printf("Token for user %d (jti %s) written to %s\n", userID, jti, absPath)
}
