// Package db wires repository implementations to their backing store and
// runs schema migrations.
package db

import (
	"context"
	"database/sql"

	"github.com/mkrutov/termgate/internal/server/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Close() error
	Users() users.Repository
}
