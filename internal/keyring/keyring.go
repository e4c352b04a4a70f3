// Package keyring keeps the PostgreSQL connection string out of config files
// by storing it in the OS credential store.
package keyring

import (
	"errors"
	"fmt"
	"os"
	"strings"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/julianstephens/constancia/internal/constants"
)

var (
	ErrNotFound    = errors.New("no connection string stored in keyring")
	ErrUnavailable = errors.New("OS keyring is not available")
)

// Source says where a resolved connection string came from.
type Source string

const (
	SourceNone    Source = ""
	SourceFlag    Source = "flag"
	SourceEnv     Source = "env"
	SourceKeyring Source = "keyring"
)

func Get() (string, error) {
	v, err := gokeyring.Get(constants.AppName, constants.DefaultKeyringUser)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, gokeyring.ErrNotFound):
		return "", ErrNotFound
	default:
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func Set(connStr string) error {
	if strings.TrimSpace(connStr) == "" {
		return errors.New("connection string cannot be empty")
	}
	if err := gokeyring.Set(constants.AppName, constants.DefaultKeyringUser, connStr); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}
	return nil
}

func Delete() error {
	err := gokeyring.Delete(constants.AppName, constants.DefaultKeyringUser)
	if errors.Is(err, gokeyring.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove connection string from keyring: %w", err)
	}
	return nil
}

// Resolve returns the first PostgreSQL connection string found in, in order,
// the explicit flag value, the CONSTANCIA_DB_CONNECTION environment variable
// and the keyring. SourceNone with no error means nothing is configured.
func Resolve(flagValue string) (string, Source, error) {
	if flagValue != "" {
		return flagValue, SourceFlag, nil
	}
	if v := os.Getenv(constants.EnvDBConnection); v != "" {
		return v, SourceEnv, nil
	}
	v, err := Get()
	switch {
	case err == nil:
		return v, SourceKeyring, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnavailable):
		return "", SourceNone, nil
	default:
		return "", SourceNone, err
	}
}
