package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/user"
	"runtime"
)

// Fingerprint derives a stable device identifier from machine identity so the
// backend recognizes repeated authentications from the same host. SHA-256,
// truncated to 32 hex characters (128 bits).
func Fingerprint() string {
	raw := fmt.Sprintf("%s-%s-%s-bot", hostname(), username(), runtime.GOOS)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:32]
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown-host"
	}
	return name
}

func username() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown-user"
}
