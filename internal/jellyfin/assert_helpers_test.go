// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package jellyfin

import "testing"

// Test assertion helpers with "check" prefix. Using t.Helper() ensures
// error messages point to the calling line.

func checkStringEqual(t *testing.T, fieldName, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %q, got %q", fieldName, want, got)
	}
}

func checkIntEqual(t *testing.T, fieldName string, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %d, got %d", fieldName, want, got)
	}
}

func checkStringPtrNil(t *testing.T, fieldName string, ptr *string) {
	t.Helper()
	if ptr != nil {
		t.Errorf("%s should be nil, got %q", fieldName, *ptr)
	}
}

func checkStringPtrEqual(t *testing.T, fieldName string, ptr *string, want string) {
	t.Helper()
	if ptr == nil {
		t.Errorf("%s should not be nil, expected %q", fieldName, want)
		return
	}
	if *ptr != want {
		t.Errorf("%s: expected %q, got %q", fieldName, want, *ptr)
	}
}

func checkNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func checkError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func checkTrue(t *testing.T, description string, condition bool) {
	t.Helper()
	if !condition {
		t.Errorf("expected %s to be true", description)
	}
}
