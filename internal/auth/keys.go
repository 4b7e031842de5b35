package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"

	boterr "github.com/voidexchange/walletbot/internal/errors"
)

const (
	privateKeyFile = "rsa_private.pem"
	publicKeyFile  = "rsa_public.pem"
	rsaKeyBits     = 2048
)

// LoadOrCreateKeys returns the device keypair, generating and persisting it
// on first use. The public key is returned as base64 DER (SPKI), the form the
// backend expects in session requests. Reusing the same keypair keeps the
// device fingerprint stable across authentication attempts.
func LoadOrCreateKeys(dir string) (*rsa.PrivateKey, string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, "", boterr.Wrap(boterr.CodeInternal, "create key directory", err)
	}

	privPath := filepath.Join(dir, privateKeyFile)
	pubPath := filepath.Join(dir, publicKeyFile)

	if _, err := os.Stat(privPath); os.IsNotExist(err) {
		if err := generateKeys(privPath, pubPath); err != nil {
			return nil, "", err
		}
	}

	privPEM, err := os.ReadFile(privPath)
	if err != nil {
		return nil, "", boterr.Wrap(boterr.CodeInternal, "read private key", err)
	}
	block, _ := pem.Decode(privPEM)
	if block == nil {
		return nil, "", boterr.New(boterr.CodeInternal, "private key file is not PEM")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, "", boterr.Wrap(boterr.CodeInternal, "parse private key", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, "", boterr.New(boterr.CodeInternal, "private key is not RSA")
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, "", boterr.Wrap(boterr.CodeInternal, "encode public key", err)
	}
	return key, base64.StdEncoding.EncodeToString(pubDER), nil
}

func generateKeys(privPath, pubPath string) error {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return boterr.Wrap(boterr.CodeInternal, "generate keypair", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return boterr.Wrap(boterr.CodeInternal, "encode private key", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return boterr.Wrap(boterr.CodeInternal, "write private key", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return boterr.Wrap(boterr.CodeInternal, "encode public key", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return boterr.Wrap(boterr.CodeInternal, "write public key", err)
	}
	return nil
}
