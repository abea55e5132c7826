package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Argon2id parameters (RFC 9106 low-memory profile).
const (
	memory      = 19 * 1024 // KiB
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

var (
	pepper     string
	pepperFile string
)

// SetPepperPath points the package at the pepper file. Must be called before
// the first hash/verify; the pepper is loaded lazily and cached.
func SetPepperPath(file string) {
	pepperFile = file
}

func GetPepper() string {
	if pepper != "" {
		return pepper
	}

	loaded, err := loadOrGeneratePepper()
	if err != nil {
		slog.Error("failed to load or generate pepper", slog.Any("err", err))
		os.Exit(1)
	}

	pepper = loaded
	return pepper
}

func loadOrGeneratePepper() (string, error) {
	pepperFile = filepath.Clean(pepperFile)
	if err := os.MkdirAll(filepath.Dir(pepperFile), 0750); err != nil {
		return "", err
	}

	if data, err := os.ReadFile(pepperFile); err == nil {
		return strings.TrimSpace(string(data)), nil
	} else if !os.IsNotExist(err) {
		return "", err
	}

	buf := make([]byte, keyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	generated := base64.RawURLEncoding.EncodeToString(buf)

	if err := os.WriteFile(pepperFile, []byte(generated), 0600); err != nil {
		return "", err
	}
	return generated, nil
}
