package system

import (
	"errors"
	"fmt"

	"github.com/julianstephens/phaseplan/internal/cli"
	"github.com/julianstephens/phaseplan/internal/keyring"
	"github.com/julianstephens/phaseplan/internal/storage/postgres"
)

// KeyringCmd manages the PostgreSQL connection string kept in the OS keyring.
type KeyringCmd struct {
	Set    KeyringSetCmd    `cmd:"" help:"Store a connection string in the OS keyring."`
	Delete KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
	Status KeyringStatusCmd `cmd:"" help:"Show whether a connection string is stored."`
}

type KeyringSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string without a password."`
}

func (c *KeyringSetCmd) Run(ctx *cli.Context) error {
	if ok, err := postgres.ValidateConnString(c.ConnectionString); !ok {
		return err
	}
	if err := keyring.SetConnectionString(c.ConnectionString); err != nil {
		return err
	}
	ctx.Println("Connection string stored in the OS keyring.")
	return nil
}

type KeyringDeleteCmd struct{}

func (c *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	err := keyring.DeleteConnectionString()
	if errors.Is(err, keyring.ErrNotFound) {
		ctx.Println("No connection string stored.")
		return nil
	}
	if err != nil {
		return err
	}
	ctx.Println("Connection string removed from the OS keyring.")
	return nil
}

type KeyringStatusCmd struct{}

func (c *KeyringStatusCmd) Run(ctx *cli.Context) error {
	_, err := keyring.GetConnectionString()
	switch {
	case err == nil:
		ctx.Println("A connection string is stored in the OS keyring.")
	case errors.Is(err, keyring.ErrNotFound):
		ctx.Println("No connection string stored.")
	default:
		return fmt.Errorf("keyring check failed: %w", err)
	}
	return nil
}
