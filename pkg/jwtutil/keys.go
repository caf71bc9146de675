package jwtutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"authenticity-product/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

// New loads the RSA key pair named by the configuration and returns a
// ready JWT utility. Keys come either from PEM files on disk or from a
// URL serving a JSON document {"private_key": ..., "public_key": ...}
// with PEM-encoded values. Called once at process start.
func New(cfg *config.JWTConfig) (*JWTUtil, error) {
	var privPEM, pubPEM []byte
	var err error

	switch {
	case cfg.KeysURL != "":
		privPEM, pubPEM, err = fetchKeys(cfg.KeysURL)
	case cfg.PrivateKeyPath != "" && cfg.PublicKeyPath != "":
		privPEM, pubPEM, err = readKeyFiles(cfg.PrivateKeyPath, cfg.PublicKeyPath)
	default:
		return nil, errors.New("jwtutil: no key source configured (set JWT_KEYS_URL or JWT_PRIVATE_KEY_PATH/JWT_PUBLIC_KEY_PATH)")
	}
	if err != nil {
		return nil, err
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, fmt.Errorf("jwtutil: parse private key: %w", err)
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("jwtutil: parse public key: %w", err)
	}

	return NewFromKeys(privateKey, publicKey, cfg.Audience, cfg.TokenLifetime), nil
}

func readKeyFiles(privatePath, publicPath string) ([]byte, []byte, error) {
	privPEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, nil, fmt.Errorf("jwtutil: read private key: %w", err)
	}
	pubPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, nil, fmt.Errorf("jwtutil: read public key: %w", err)
	}
	return privPEM, pubPEM, nil
}

func fetchKeys(url string) ([]byte, []byte, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, nil, fmt.Errorf("jwtutil: fetch keys: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("jwtutil: fetch keys: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("jwtutil: fetch keys: %w", err)
	}

	var doc struct {
		PrivateKey string `json:"private_key"`
		PublicKey  string `json:"public_key"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, nil, fmt.Errorf("jwtutil: decode keys document: %w", err)
	}
	if doc.PrivateKey == "" || doc.PublicKey == "" {
		return nil, nil, errors.New("jwtutil: keys document missing private_key or public_key")
	}
	return []byte(doc.PrivateKey), []byte(doc.PublicKey), nil
}
