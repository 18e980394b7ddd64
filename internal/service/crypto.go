package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// CryptoService encrypts and decrypts PANs under versioned AES-256-GCM keys.
// Per-version keys are derived from the master key material with HKDF, so
// rotating to a new version never requires re-encrypting stored ciphertexts:
// the version prefix on each ciphertext selects the derivation.
type CryptoService struct {
	masterKey []byte
}

// NewCryptoService creates a CryptoService from master key material.
func NewCryptoService(masterKey []byte) (*CryptoService, error) {
	if len(masterKey) < 32 {
		return nil, fmt.Errorf("master key must be at least 32 bytes, got %d", len(masterKey))
	}
	return &CryptoService{masterKey: masterKey}, nil
}

const gcmNonceSize = 12

func (s *CryptoService) deriveKey(version int) ([]byte, error) {
	if version < 1 {
		return nil, fmt.Errorf("invalid key version %d", version)
	}

	info := []byte("pan-key-v" + strconv.Itoa(version))
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, s.masterKey, nil, info), key); err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}

	return key, nil
}

// KeyHash returns the hex SHA-256 of the derived key for a version. The hash
// is what rotation persists; the key itself never leaves this service.
func (s *CryptoService) KeyHash(version int) (string, error) {
	key, err := s.deriveKey(version)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:]), nil
}

// Encrypt seals a validated PAN under the given key version. The PAN must
// already match the 13-19 digit format; callers normalize first.
// Wire form: "v<version>:" + base64(nonce || sealed).
func (s *CryptoService) Encrypt(pan string, version int) (string, error) {
	if _, err := NormalizePAN(pan); err != nil {
		return "", validationError(err.Error())
	}

	key, err := s.deriveKey(version)
	if err != nil {
		return "", cryptoError("unknown key version", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", cryptoError("cipher init failed", err)
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", cryptoError("cipher init failed", err)
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", cryptoError("nonce generation failed", err)
	}

	sealed := aesgcm.Seal(nil, nonce, []byte(pan), nil)

	encoded := base64.StdEncoding.EncodeToString(append(nonce, sealed...))
	return fmt.Sprintf("v%d:%s", version, encoded), nil
}

// Decrypt opens a ciphertext produced by Encrypt, returning the clear PAN
// and the key version it was sealed under.
func (s *CryptoService) Decrypt(ciphertext string) (string, int, error) {
	prefix, encoded, found := strings.Cut(ciphertext, ":")
	if !found || !strings.HasPrefix(prefix, "v") {
		return "", 0, cryptoError("malformed ciphertext", nil)
	}

	version, err := strconv.Atoi(strings.TrimPrefix(prefix, "v"))
	if err != nil || version < 1 {
		return "", 0, cryptoError("malformed ciphertext version", err)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", 0, cryptoError("malformed ciphertext encoding", err)
	}
	if len(raw) <= gcmNonceSize {
		return "", 0, cryptoError("ciphertext too short", nil)
	}

	key, err := s.deriveKey(version)
	if err != nil {
		return "", 0, cryptoError("unknown key version", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", 0, cryptoError("cipher init failed", err)
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", 0, cryptoError("cipher init failed", err)
	}

	pan, err := aesgcm.Open(nil, raw[:gcmNonceSize], raw[gcmNonceSize:], nil)
	if err != nil {
		return "", 0, cryptoError("decryption failed", err)
	}

	return string(pan), version, nil
}
