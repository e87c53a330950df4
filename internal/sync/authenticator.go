// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/cinemood/cinemood/internal/database"
	"github.com/cinemood/cinemood/internal/jellyfin"
	"github.com/cinemood/cinemood/internal/logging"
	"github.com/cinemood/cinemood/internal/secrets"
)

// Credential store keys. Values live in the settings table; the password
// is only ever stored encrypted and only decrypted in-process for silent
// re-login.
const (
	SettingServerURL   = "jellyfin.server_url"
	SettingAccessToken = "jellyfin.access_token"
	SettingUserID      = "jellyfin.user_id"
	SettingUsername    = "jellyfin.username"
	SettingPasswordEnc = "jellyfin.password_encrypted"
)

// ErrMissingCredentials is returned when the credential store lacks a
// field required for silent re-login; no login attempt is made.
var ErrMissingCredentials = errors.New("auth: stored credentials incomplete")

// Authenticator owns the silent re-authentication flow: credential
// store, secret cipher and catalog client working together behind one
// Reauthenticate capability injected into the full-sync coordinator.
type Authenticator struct {
	store  *database.Store
	cipher *secrets.Cipher
	client jellyfin.API
}

// NewAuthenticator wires the credential store, cipher and client.
func NewAuthenticator(store *database.Store, cipher *secrets.Cipher, client jellyfin.API) *Authenticator {
	return &Authenticator{store: store, cipher: cipher, client: client}
}

// Reauthenticate obtains a fresh access token using stored credentials
// without user interaction: load URL, username and encrypted password,
// decrypt, log in, persist the new token and user id, and reconfigure
// the in-memory client. Any missing field short-circuits to failure.
func (a *Authenticator) Reauthenticate(ctx context.Context) error {
	serverURL, ok, err := a.store.SettingGet(ctx, SettingServerURL)
	if err != nil {
		return fmt.Errorf("load server url: %w", err)
	}
	if !ok || serverURL == "" {
		return ErrMissingCredentials
	}

	username, ok, err := a.store.SettingGet(ctx, SettingUsername)
	if err != nil {
		return fmt.Errorf("load username: %w", err)
	}
	if !ok || username == "" {
		return ErrMissingCredentials
	}

	encrypted, ok, err := a.store.SettingGet(ctx, SettingPasswordEnc)
	if err != nil {
		return fmt.Errorf("load password: %w", err)
	}
	if !ok || encrypted == "" {
		return ErrMissingCredentials
	}

	password, err := a.cipher.Decrypt(encrypted)
	if err != nil {
		return fmt.Errorf("decrypt stored password: %w", err)
	}

	result, err := a.client.Authenticate(ctx, username, password)
	if err != nil {
		return fmt.Errorf("re-login failed: %w", err)
	}

	if err := a.store.SettingSet(ctx, SettingAccessToken, &result.AccessToken); err != nil {
		return fmt.Errorf("persist access token: %w", err)
	}
	if err := a.store.SettingSet(ctx, SettingUserID, &result.User.ID); err != nil {
		return fmt.Errorf("persist user id: %w", err)
	}

	a.client.Reconfigure(serverURL, result.AccessToken, result.User.ID)

	logging.Info().
		Str("user", result.User.Name).
		Str("token", logging.SanitizeToken(result.AccessToken)).
		Msg("Silent re-authentication succeeded")
	return nil
}

// StoreCredentials encrypts and persists a full credential set and
// reconfigures the client after an interactive login. A failed login
// restores the previous connection parameters, so a typoed password or
// an unreachable server never degrades a working configuration.
func (a *Authenticator) StoreCredentials(ctx context.Context, serverURL, username, password string) error {
	prevURL, prevToken, prevUserID := a.client.Snapshot()
	a.client.Reconfigure(serverURL, "", "")

	result, err := a.client.Authenticate(ctx, username, password)
	if err != nil {
		a.client.Reconfigure(prevURL, prevToken, prevUserID)
		return fmt.Errorf("login failed: %w", err)
	}

	encrypted, err := a.cipher.Encrypt(password)
	if err != nil {
		return fmt.Errorf("encrypt password: %w", err)
	}

	values := map[string]string{
		SettingServerURL:   serverURL,
		SettingUsername:    username,
		SettingPasswordEnc: encrypted,
		SettingAccessToken: result.AccessToken,
		SettingUserID:      result.User.ID,
	}
	for key, value := range values {
		v := value
		if err := a.store.SettingSet(ctx, key, &v); err != nil {
			return fmt.Errorf("persist %s: %w", key, err)
		}
	}

	a.client.Reconfigure(serverURL, result.AccessToken, result.User.ID)
	return nil
}

// Hydrate reconfigures the client from the credential store at startup.
// Missing settings leave the client unconfigured; that is not an error.
func (a *Authenticator) Hydrate(ctx context.Context) error {
	settings, err := a.store.SettingsLoadAll(ctx)
	if err != nil {
		return fmt.Errorf("hydrate credentials: %w", err)
	}

	serverURL := settings[SettingServerURL]
	if serverURL == "" {
		return nil
	}
	a.client.Reconfigure(serverURL, settings[SettingAccessToken], settings[SettingUserID])
	return nil
}
