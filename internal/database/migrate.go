package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func (p *PostgresDB) newMigrator() (*migrate.Migrate, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("error opening embedded migrations: %v", err)
	}

	driver, err := postgres.WithInstance(p.DB.DB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("error creating postgres driver: %v", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("error creating migration instance: %v", err)
	}
	return m, nil
}

// MigrationsUp applies every pending migration.
func (p *PostgresDB) MigrationsUp() error {
	m, err := p.newMigrator()
	if err != nil {
		return err
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		p.logger.Info("migration state is up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("error running migrations: %v", err)
	}

	p.logger.Info("ran migrations successfully")
	return nil
}

// MigrationsDown rolls back the given number of migrations; steps <= 0
// rolls back everything.
func (p *PostgresDB) MigrationsDown(steps int) error {
	m, err := p.newMigrator()
	if err != nil {
		return err
	}

	if steps <= 0 {
		err = m.Down()
	} else {
		err = m.Steps(-steps)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		p.logger.Info("no migrations to run down")
		return nil
	}
	if err != nil {
		return fmt.Errorf("error running down migrations: %v", err)
	}

	p.logger.Info("ran down migrations", slog.Int("steps", steps))
	return nil
}

// MigrationVersion reports the current schema version.
func (p *PostgresDB) MigrationVersion() (uint, bool, error) {
	m, err := p.newMigrator()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
