package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService is the keychain service name bot tokens are stored under.
const KeyringService = "fontbot"

// ResolveToken fills an empty transport token from the OS keychain when
// transport.keyring_account is configured.
func ResolveToken(cfg *Config) error {
	if cfg == nil || strings.TrimSpace(cfg.Transport.Token) != "" {
		return nil
	}
	account := strings.TrimSpace(cfg.Transport.KeyringAccount)
	if account == "" {
		return nil
	}
	token, err := keyring.Get(KeyringService, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%w: keychain entry %q not found", ErrTokenMissing, account)
		}
		return fmt.Errorf("read token from keychain: %w", err)
	}
	cfg.Transport.Token = token
	return nil
}

// StoreToken saves a bot token in the OS keychain under account.
func StoreToken(account, token string) error {
	account = strings.TrimSpace(account)
	if account == "" {
		return fmt.Errorf("keychain account is required")
	}
	if strings.TrimSpace(token) == "" {
		return ErrTokenMissing
	}
	return keyring.Set(KeyringService, account, strings.TrimSpace(token))
}
