package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"

	boterr "github.com/voidexchange/walletbot/internal/errors"
)

// The backend delivers the bearer token doubly encrypted: a symmetric key
// wrapped with the device's RSA public key (OAEP/SHA-256), and the token
// itself encrypted with that key using AES-CFB where the first 16 bytes of
// the payload are the IV. Any failure along the chain is terminal for the
// poll cycle; partial decryption is never accepted.

func decryptSessionKey(key *rsa.PrivateKey, encryptedB64 string) ([]byte, error) {
	wrapped, err := base64.StdEncoding.DecodeString(encryptedB64)
	if err != nil {
		return nil, boterr.Wrap(boterr.CodeAuthDecrypt, "decode encrypted key", err)
	}
	plain, err := rsa.DecryptOAEP(sha256.New(), nil, key, wrapped, nil)
	if err != nil {
		return nil, boterr.Wrap(boterr.CodeAuthDecrypt, "unwrap session key", err)
	}
	return plain, nil
}

func decryptAccessToken(encryptedB64 string, sessionKey []byte) (string, error) {
	payload, err := base64.StdEncoding.DecodeString(encryptedB64)
	if err != nil {
		return "", boterr.Wrap(boterr.CodeAuthDecrypt, "decode encrypted token", err)
	}
	if len(payload) <= aes.BlockSize {
		return "", boterr.New(boterr.CodeAuthDecrypt, "encrypted token shorter than IV")
	}
	block, err := aes.NewCipher(sessionKey)
	if err != nil {
		return "", boterr.Wrap(boterr.CodeAuthDecrypt, "init token cipher", err)
	}

	iv := payload[:aes.BlockSize]
	ciphertext := payload[aes.BlockSize:]
	plain := make([]byte, len(ciphertext))
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(plain, ciphertext)
	return string(plain), nil
}

// DecryptTokenPayload runs the full chain on a completed auth status.
func DecryptTokenPayload(key *rsa.PrivateKey, encryptedKey, encryptedToken string) (string, error) {
	sessionKey, err := decryptSessionKey(key, encryptedKey)
	if err != nil {
		return "", err
	}
	return decryptAccessToken(encryptedToken, sessionKey)
}
