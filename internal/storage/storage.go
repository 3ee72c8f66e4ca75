// Package storage persists chat sessions for one signed-in owner. Every
// store is owner-scoped: rows of other users are never read or written, and
// a store without an owner does nothing.
package storage

import (
	"errors"
	"fmt"

	"github.com/jonztech/jz-cli/internal/chat"
	"github.com/jonztech/jz-cli/internal/logger"
)

const logModule = "storage"

var ErrUnknownDriver = errors.New("unknown storage driver")

// Store is a closable chat.Persistence.
type Store interface {
	chat.Persistence
	Close() error
}

// Open returns the store for driver ("sqlite" or "postgres").
func Open(driver, dsn, owner string, log logger.Logger) (Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	switch driver {
	case "", "sqlite":
		return OpenSQLite(dsn, owner, log)
	case "postgres":
		return OpenPostgres(dsn, owner, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
