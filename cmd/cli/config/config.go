package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultAPIURL = "http://localhost:8080"
	tokenFileName = ".spend_token"
)

// APIURL returns the base URL of the spend-ledger API.
// It can be overridden with the SPEND_API_URL environment variable.
func APIURL() string {
	if v := os.Getenv("SPEND_API_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return defaultAPIURL
}

// APIKey returns the api key used by report commands that require one (SPEND_API_KEY).
func APIKey() string {
	return os.Getenv("SPEND_API_KEY")
}

// ==========================
// Token Storage Helpers
// ==========================

// TokenPath is where the JWT is kept between commands. SPEND_TOKEN_FILE overrides the
// default of ~/.spend_token.
func TokenPath() (string, error) {
	if v := os.Getenv("SPEND_TOKEN_FILE"); v != "" {
		return v, nil
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(dir, tokenFileName), nil
}

func SaveToken(token string) error {
	path, err := TokenPath()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0o600)
}

// LoadToken returns the stored token. ErrNotLoggedIn means there is none.
func LoadToken() (string, error) {
	path, err := TokenPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotLoggedIn
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// RemoveToken deletes the stored token. It reports false when there was none.
func RemoveToken() (bool, error) {
	path, err := TokenPath()
	if err != nil {
		return false, err
	}
	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

var ErrNotLoggedIn = errors.New("not logged in: run `spend login` first")
