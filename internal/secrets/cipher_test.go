// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package secrets

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func openTestCipher(t *testing.T) (*Cipher, string) {
	t.Helper()
	keyPath := filepath.Join(t.TempDir(), "cinemood.key")
	c, err := Open(keyPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return c, keyPath
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, _ := openTestCipher(t)

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "simple password", plaintext: "hunter2"},
		{name: "unicode", plaintext: "pässwörd-日本語"},
		{name: "long input", plaintext: strings.Repeat("correct horse battery staple ", 50)},
		{name: "looks like base64", plaintext: "aGVsbG8gd29ybGQ="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := c.Encrypt(tt.plaintext)
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}
			if blob == tt.plaintext {
				t.Fatal("ciphertext must differ from plaintext")
			}

			got, err := c.Decrypt(blob)
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if got != tt.plaintext {
				t.Errorf("round trip: expected %q, got %q", tt.plaintext, got)
			}
		})
	}
}

func TestEncryptProducesFreshNonce(t *testing.T) {
	c, _ := openTestCipher(t)

	first, err := c.Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	second, err := c.Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if first == second {
		t.Error("two encryptions of the same plaintext must not produce the same blob")
	}
}

func TestEncryptEmptyPlaintext(t *testing.T) {
	c, _ := openTestCipher(t)
	if _, err := c.Encrypt(""); !errors.Is(err, ErrEmptyPlaintext) {
		t.Fatalf("expected ErrEmptyPlaintext, got %v", err)
	}
}

func TestDecryptRejectsBadInput(t *testing.T) {
	c, _ := openTestCipher(t)

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty", input: "", wantErr: ErrEmptyCiphertext},
		{name: "not base64", input: "%%%not-base64%%%", wantErr: ErrInvalidCiphertext},
		{name: "too short", input: base64.StdEncoding.EncodeToString([]byte("tiny")), wantErr: ErrCiphertextTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Decrypt(tt.input); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDecryptDetectsTampering(t *testing.T) {
	c, _ := openTestCipher(t)

	blob, err := c.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw[len(raw)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := c.Decrypt(tampered); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestDecryptWithDifferentKeyFails(t *testing.T) {
	first, _ := openTestCipher(t)
	second, _ := openTestCipher(t)

	blob, err := first.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := second.Decrypt(blob); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed under a foreign key, got %v", err)
	}
}

func TestKeyFileCreatedWithOwnerOnlyPermissions(t *testing.T) {
	_, keyPath := openTestCipher(t)

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("stat key file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("key file permissions: expected 0600, got %o", perm)
	}
}

func TestKeyFileReusedAcrossOpens(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "cinemood.key")

	first, err := Open(keyPath)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	blob, err := first.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	second, err := Open(keyPath)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	got, err := second.Decrypt(blob)
	if err != nil {
		t.Fatalf("Decrypt after reopen: %v", err)
	}
	if got != "hunter2" {
		t.Errorf("expected %q, got %q", "hunter2", got)
	}
}

func TestOpenRejectsCorruptKeyFile(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "cinemood.key")
	if err := os.WriteFile(keyPath, []byte("not a valid key"), 0o600); err != nil {
		t.Fatalf("write corrupt key: %v", err)
	}

	if _, err := Open(keyPath); !errors.Is(err, ErrCorruptKeyFile) {
		t.Fatalf("expected ErrCorruptKeyFile, got %v", err)
	}
}
