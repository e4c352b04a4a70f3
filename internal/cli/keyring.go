package cli

import (
	"errors"
	"fmt"

	"github.com/julianstephens/constancia/internal/keyring"
	"github.com/julianstephens/constancia/internal/storage"
)

type KeyringCmd struct {
	Set    KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
	Get    KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
	Delete KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
}

type KeyringSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string."`
}

func (cmd *KeyringSetCmd) Run(ctx *Context) error {
	err := storage.ValidateConnString(cmd.ConnectionString)
	switch {
	case errors.Is(err, storage.ErrEmbeddedCredentials):
		// The keyring is encrypted, so a password is acceptable here
		ctx.println("⚠️  Connection string contains a password; it will be stored in the OS keyring as-is.")
	case err != nil:
		return fmt.Errorf("invalid connection string: %w", err)
	}

	if err := keyring.Set(cmd.ConnectionString); err != nil {
		return err
	}
	ctx.println("✓ Connection string stored in OS keyring")
	ctx.println("  Set 'database: postgres' in config.yaml to use it")
	return nil
}

type KeyringGetCmd struct{}

func (cmd *KeyringGetCmd) Run(ctx *Context) error {
	connStr, err := keyring.Get()
	if errors.Is(err, keyring.ErrNotFound) {
		return errors.New("no connection string found in keyring, use 'constancia keyring set' to store one")
	}
	if err != nil {
		return err
	}
	ctx.println(storage.Redact(connStr))
	return nil
}

type KeyringDeleteCmd struct{}

func (cmd *KeyringDeleteCmd) Run(ctx *Context) error {
	if err := keyring.Delete(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring")
		}
		return err
	}
	ctx.println("✓ Connection string deleted from OS keyring")
	return nil
}
