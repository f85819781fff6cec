package memory

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parley-ai/parley/internal/domain"
)

// secretBox seals and opens store blobs with AES-GCM. Key material of any
// length is accepted; it is stretched to 32 bytes with SHA-256.
type secretBox struct {
	aead cipher.AEAD
}

func newSecretBox(key []byte) (*secretBox, error) {
	if len(key) == 0 {
		return nil, errors.New("memory: empty encryption key")
	}
	digest := sha256.Sum256(key)
	block, err := aes.NewCipher(digest[:])
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &secretBox{aead: aead}, nil
}

// seal encrypts plain and prepends the nonce.
func (b *secretBox) seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return b.aead.Seal(nonce, nonce, plain, nil), nil
}

// open decrypts a sealed blob produced by seal.
func (b *secretBox) open(sealed []byte) ([]byte, error) {
	if len(sealed) < b.aead.NonceSize() {
		return nil, errors.New("memory: sealed blob too short")
	}
	nonce, payload := sealed[:b.aead.NonceSize()], sealed[b.aead.NonceSize():]
	plain, err := b.aead.Open(nil, nonce, payload, nil)
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return plain, nil
}

// LoadOrCreateKey resolves the store encryption key: the named environment
// variable wins; otherwise a hex-encoded key file is read, created with
// fresh random material on first use.
func LoadOrCreateKey(envVar, keyFile string) ([]byte, error) {
	if envVar != "" {
		if v := os.Getenv(envVar); v != "" {
			return []byte(v), nil
		}
	}

	data, err := os.ReadFile(keyFile)
	if err == nil {
		key, decErr := hex.DecodeString(strings.TrimSpace(string(data)))
		if decErr != nil {
			return nil, fmt.Errorf("decode key file %s: %w", keyFile, decErr)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(keyFile), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}
	encoded := hex.EncodeToString(key) + "\n"
	if err := os.WriteFile(keyFile, []byte(encoded), domain.SecureFilePermissions); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return key, nil
}
