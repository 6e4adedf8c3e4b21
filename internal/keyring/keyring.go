// Package keyring keeps grove's secrets in the OS keyring.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/grove/internal/constants"
)

var (
	// ErrNotFound is returned when no secret is stored for an account
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Account names one secret stored under the grove service
type Account string

const (
	AccountDatabase Account = constants.DefaultKeyringUser
	AccountS3Secret Account = constants.S3KeyringUser
)

// Get returns the secret stored for account
func Get(account Account) (string, error) {
	secret, err := keyring.Get(constants.AppName, string(account))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return secret, nil
}

// Set stores secret for account, replacing any previous value
func Set(account Account, secret string) error {
	if secret == "" {
		return fmt.Errorf("%s cannot be empty", account)
	}
	if err := keyring.Set(constants.AppName, string(account), secret); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", account, err)
	}
	return nil
}

// Delete removes the secret stored for account
func Delete(account Account) error {
	if err := keyring.Delete(constants.AppName, string(account)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", account, err)
	}
	return nil
}

// GetConnectionString returns the stored database connection string.
func GetConnectionString() (string, error) {
	return Get(AccountDatabase)
}

func SetConnectionString(connStr string) error {
	return Set(AccountDatabase, connStr)
}

func DeleteConnectionString() error {
	return Delete(AccountDatabase)
}

// IsAvailable is a best-effort probe: a lookup that fails with anything
// other than ErrNotFound means there is no usable keyring.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
