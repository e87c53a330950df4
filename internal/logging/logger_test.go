// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{in: "trace", want: zerolog.TraceLevel},
		{in: "debug", want: zerolog.DebugLevel},
		{in: "info", want: zerolog.InfoLevel},
		{in: "warn", want: zerolog.WarnLevel},
		{in: "warning", want: zerolog.WarnLevel},
		{in: "error", want: zerolog.ErrorLevel},
		{in: "WARN", want: zerolog.WarnLevel},
		{in: "garbage", want: zerolog.InfoLevel},
		{in: "", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "short token fully masked", in: "abcd", want: "****"},
		{name: "tail preserved", in: "supersecrettoken1234", want: "****...1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeToken(tt.in); got != tt.want {
				t.Errorf("SanitizeToken(%q): expected %q, got %q", tt.in, tt.want, got)
			}
		})
	}
}

func TestSanitizedTokenNeverLeaksFullValue(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(DefaultConfig())

	token := "very-secret-access-token"
	Info().Str("token", SanitizeToken(token)).Msg("login")

	out := buf.String()
	if strings.Contains(out, token) {
		t.Errorf("full token leaked into log output: %s", out)
	}
	if !strings.Contains(out, "****...oken") {
		t.Errorf("expected masked token in output, got: %s", out)
	}
}
