package app

import (
	"fmt"

	habitsDomain "github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	habitsPersistence "github.com/felixgeelhaar/habitpulse/internal/habits/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/habitpulse/internal/shared/application"
	"github.com/felixgeelhaar/habitpulse/internal/shared/infrastructure/database"
)

// RepositoryFactory creates repositories based on the database driver.
type RepositoryFactory struct {
	conn   database.Connection
	driver database.Driver
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(conn database.Connection) *RepositoryFactory {
	return &RepositoryFactory{
		conn:   conn,
		driver: conn.Driver(),
	}
}

// Driver returns the driver the factory builds for.
func (f *RepositoryFactory) Driver() database.Driver {
	return f.driver
}

// HabitRepository creates a habit repository for the configured driver.
func (f *RepositoryFactory) HabitRepository() (habitsDomain.Repository, error) {
	switch f.driver {
	case database.DriverPostgres:
		return habitsPersistence.NewPostgresHabitRepository(f.conn), nil
	case database.DriverSQLite:
		return habitsPersistence.NewSQLiteHabitRepository(f.conn), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// UnitOfWork creates a unit of work over the connection.
func (f *RepositoryFactory) UnitOfWork() sharedApplication.UnitOfWork {
	return database.NewUnitOfWork(f.conn)
}
