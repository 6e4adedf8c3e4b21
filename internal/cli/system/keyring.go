package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/grove/internal/cli"
	"github.com/julianstephens/grove/internal/keyring"
	"github.com/julianstephens/grove/internal/storage/postgres"
)

type KeyringCmd struct {
	Set    KeyringSetCmd    `cmd:"" help:"Store a secret in the OS keyring."`
	Get    KeyringGetCmd    `cmd:"" help:"Show the stored secret (masked)."`
	Delete KeyringDeleteCmd `cmd:"" help:"Remove a stored secret."`
	Status KeyringStatusCmd `cmd:"" help:"Check keyring availability." default:"1"`
}

func account(s3 bool) keyring.Account {
	if s3 {
		return keyring.AccountS3Secret
	}
	return keyring.AccountDatabase
}

func describe(s3 bool) string {
	if s3 {
		return "S3 secret access key"
	}
	return "connection string"
}

// KeyringSetCmd stores a PostgreSQL connection string or the S3 secret key
type KeyringSetCmd struct {
	Value string `arg:"" help:"PostgreSQL connection string, or the S3 secret with --s3."`
	S3    bool   `help:"Store the S3 backup secret access key instead."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	if !cmd.S3 {
		if !postgres.IsConnString(cmd.Value) && !strings.Contains(cmd.Value, "host=") {
			return errors.New("connection string must be a valid PostgreSQL connection string")
		}
		if err := postgres.ValidateConnString(cmd.Value); err != nil {
			if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return fmt.Errorf("invalid connection string: %w", err)
			}
			fmt.Println("⚠️  Warning: Connection string contains embedded credentials.")
			fmt.Println("   It will be stored as-is in the encrypted OS keyring.")
		}
	}

	if err := keyring.Set(account(cmd.S3), cmd.Value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", describe(cmd.S3), err)
	}
	fmt.Printf("✓ %s stored successfully in OS keyring\n", capitalize(describe(cmd.S3)))
	return nil
}

type KeyringGetCmd struct {
	S3 bool `help:"Show the S3 backup secret access key instead."`
}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	value, err := keyring.Get(account(cmd.S3))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s found in keyring. Use 'grove keyring set' to store one", describe(cmd.S3))
		}
		return fmt.Errorf("failed to retrieve %s from keyring: %w", describe(cmd.S3), err)
	}

	if cmd.S3 {
		fmt.Println(maskSecret(value))
		return nil
	}
	fmt.Println("Connection string retrieved from keyring:")
	fmt.Println(maskPassword(value))
	return nil
}

type KeyringDeleteCmd struct {
	S3 bool `help:"Delete the S3 backup secret access key instead."`
}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	if err := keyring.Delete(account(cmd.S3)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s found in keyring", describe(cmd.S3))
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", describe(cmd.S3), err)
	}
	fmt.Printf("✓ %s deleted from OS keyring\n", capitalize(describe(cmd.S3)))
	return nil
}

type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		fmt.Println("❌ OS keyring is not available on this system")
		return errors.New("keyring unavailable")
	}
	fmt.Println("✓ OS keyring is available")

	for _, s3 := range []bool{false, true} {
		if _, err := keyring.Get(account(s3)); err == nil {
			fmt.Printf("✓ %s is stored in keyring\n", capitalize(describe(s3)))
		} else if errors.Is(err, keyring.ErrNotFound) {
			fmt.Printf("ℹ No %s stored in keyring\n", describe(s3))
		}
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func maskSecret(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// maskPassword masks passwords in connection strings for display
func maskPassword(connStr string) string {
	if postgres.IsConnString(connStr) {
		if idx := strings.Index(connStr, "://"); idx != -1 {
			remaining := connStr[idx+3:]
			if atIdx := strings.LastIndex(remaining, "@"); atIdx != -1 {
				userInfo := remaining[:atIdx]
				if colonIdx := strings.Index(userInfo, ":"); colonIdx != -1 {
					return connStr[:idx+3] + userInfo[:colonIdx] + ":****" + connStr[idx+3+atIdx:]
				}
			}
		}
	}

	if strings.Contains(connStr, "password=") {
		parts := strings.Fields(connStr)
		for i, part := range parts {
			if strings.HasPrefix(part, "password=") {
				parts[i] = "password=****"
			}
		}
		return strings.Join(parts, " ")
	}
	return connStr
}
