// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package secrets implements authenticated encryption for stored
// credentials (the Jellyfin password kept for silent re-login).
//
// Encryption scheme:
//   - AES-256-GCM (authenticated encryption)
//   - 12-byte random nonce per encryption
//   - Key derived via HKDF-SHA256 from random key material persisted in
//     an owner-only local file on first use
//
// Ciphertext format: base64(nonce || ciphertext || tag), a single
// self-contained string. Decryption of a tampered or foreign blob fails
// with ErrDecryptionFailed, never with silently wrong plaintext.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// keyDerivationSalt binds derived keys to this application's
	// credential encryption use case.
	keyDerivationSalt = "cinemood-credentials"
	keyDerivationInfo = "credential-encryption-v1"

	aesKeySize   = 32
	gcmNonceSize = 12
	keyFileMode  = 0o600
)

var (
	// ErrEmptyPlaintext is returned when attempting to encrypt empty data.
	ErrEmptyPlaintext = errors.New("plaintext cannot be empty")

	// ErrEmptyCiphertext is returned when attempting to decrypt empty data.
	ErrEmptyCiphertext = errors.New("ciphertext cannot be empty")

	// ErrDecryptionFailed is returned when decryption fails (wrong key,
	// corrupted blob, or tampered authentication tag).
	ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or authentication tag")

	// ErrInvalidCiphertext is returned when the ciphertext encoding is invalid.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")

	// ErrCiphertextTooShort is returned when the decoded blob is shorter
	// than nonce + one byte + GCM tag.
	ErrCiphertextTooShort = errors.New("ciphertext too short")

	// ErrCorruptKeyFile is returned when the persisted key file cannot
	// be decoded or has the wrong length.
	ErrCorruptKeyFile = errors.New("corrupt key file")
)

// Cipher provides AES-256-GCM encryption keyed from a local key file.
type Cipher struct {
	aead cipher.AEAD
}

// Open loads the key file at path, generating it with owner-only
// permissions on first use, and returns a ready Cipher.
func Open(path string) (*Cipher, error) {
	material, err := loadOrCreateKeyMaterial(path)
	if err != nil {
		return nil, err
	}
	return newCipher(material)
}

// newCipher derives the AES key from raw key material via HKDF-SHA256
// and constructs the GCM AEAD.
func newCipher(material []byte) (*Cipher, error) {
	hkdfReader := hkdf.New(sha256.New, material, []byte(keyDerivationSalt), []byte(keyDerivationInfo))

	key := make([]byte, aesKeySize)
	if _, err := io.ReadFull(hkdfReader, key); err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Cipher{aead: gcm}, nil
}

// loadOrCreateKeyMaterial reads the base64-encoded key file, creating a
// fresh random key on first use.
func loadOrCreateKeyMaterial(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		material, decErr := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if decErr != nil || len(material) != aesKeySize {
			return nil, ErrCorruptKeyFile
		}
		return material, nil

	case os.IsNotExist(err):
		material := make([]byte, aesKeySize)
		if _, rErr := io.ReadFull(rand.Reader, material); rErr != nil {
			return nil, fmt.Errorf("failed to generate key: %w", rErr)
		}
		if dir := filepath.Dir(path); dir != "." {
			if mkErr := os.MkdirAll(dir, 0o700); mkErr != nil {
				return nil, fmt.Errorf("failed to create key directory: %w", mkErr)
			}
		}
		encoded := base64.StdEncoding.EncodeToString(material)
		if wErr := os.WriteFile(path, []byte(encoded), keyFileMode); wErr != nil {
			return nil, fmt.Errorf("failed to persist key file: %w", wErr)
		}
		return material, nil

	default:
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
}

// Encrypt encrypts a plaintext string into a base64-encoded
// self-contained blob (nonce || ciphertext || tag).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPlaintext
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts a blob produced by Encrypt back to plaintext.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", ErrEmptyCiphertext
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrInvalidCiphertext)
	}

	minLength := gcmNonceSize + 1 + c.aead.Overhead()
	if len(data) < minLength {
		return "", ErrCiphertextTooShort
	}

	nonce := data[:gcmNonceSize]
	plaintext, err := c.aead.Open(nil, nonce, data[gcmNonceSize:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}
