// Package secrets provides concrete backends for the core secret resolver
// capability: the operating system keyring and process environment
// variables.
package secrets

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	coresecrets "inimerge.dev/cli/internal/core/secrets"
)

// KeyringResolver resolves secrets from the system keyring (Secret Service,
// Keychain or Windows Credential Manager, depending on platform).
type KeyringResolver struct{}

// NewKeyringResolver creates a keyring-backed resolver.
func NewKeyringResolver() *KeyringResolver {
	return &KeyringResolver{}
}

// Lookup fetches the secret stored under service/account. A missing entry
// maps to the core not-found error; everything else is a backend error.
func (r *KeyringResolver) Lookup(service, account string) (string, error) {
	secret, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("keyring entry %s/%s: %w", service, account, coresecrets.ErrNotFound)
		}
		return "", fmt.Errorf("keyring lookup %s/%s: %w", service, account, err)
	}
	return secret, nil
}
