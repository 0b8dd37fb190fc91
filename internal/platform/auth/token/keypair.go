package token

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"
)

const (
	privateKeyFile = "capsule-token.key"
	publicKeyFile  = "capsule-token.pub"
)

// SaveKeypair writes the keypair into dir; the private key file is 0600
func SaveKeypair(dir string, pub ed25519.PublicKey, priv ed25519.PrivateKey) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("token: key dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, privateKeyFile), priv, 0o600); err != nil {
		return fmt.Errorf("token: write private key: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, publicKeyFile), pub, 0o644); err != nil {
		return fmt.Errorf("token: write public key: %w", err)
	}
	return nil
}

// LoadKeypair reads a keypair written by SaveKeypair
func LoadKeypair(dir string) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	privBytes, err := os.ReadFile(filepath.Join(dir, privateKeyFile))
	if err != nil {
		return nil, nil, fmt.Errorf("token: read private key: %w", err)
	}
	priv, err := ParsePrivateKey(privBytes)
	if err != nil {
		return nil, nil, err
	}
	pubBytes, err := os.ReadFile(filepath.Join(dir, publicKeyFile))
	if err != nil {
		return nil, nil, fmt.Errorf("token: read public key: %w", err)
	}
	pub, err := ParsePublicKey(pubBytes)
	if err != nil {
		return nil, nil, err
	}
	if !pub.Equal(priv.Public()) {
		return nil, nil, fmt.Errorf("token: public key does not match private key in %s", dir)
	}
	return pub, priv, nil
}
