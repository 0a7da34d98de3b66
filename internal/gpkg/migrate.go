package gpkg

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// MigrateUp runs all pending migrations up to the latest version.
// Returns nil if no migrations were needed (already at latest version).
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: closing it would close the shared *sql.DB.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// ErrCoreInUse is returned when a rollback would drop the core GeoPackage
// tables while feature layers are still registered in them.
var ErrCoreInUse = errors.New("gpkg: core tables hold registered layers")

// MigrateDown rolls back the most recent migration. Rolling back the core
// schema is refused while gpkg_contents lists any layer.
func (s *Store) MigrateDown() error {
	current, _, err := s.MigrateVersion()
	if err != nil {
		return err
	}
	if current == 1 {
		if err := s.checkCoreUnused(); err != nil {
			return err
		}
	}

	m, err := s.newMigrate()
	if err != nil {
		return err
	}

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current migration version and dirty state.
// Returns 0, false, nil if no migrations have been applied yet.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// MigrateForce forces the migration version to a specific value.
// This should only be used to recover from a dirty migration state.
func (s *Store) MigrateForce(version int) error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}

	if err := m.Force(version); err != nil {
		return fmt.Errorf("force migration to version %d failed: %w", version, err)
	}
	return nil
}

// MigrateTo migrates up or down to a specific version. Version 0 is
// refused while gpkg_contents lists any layer.
func (s *Store) MigrateTo(version uint) error {
	if version == 0 {
		current, _, err := s.MigrateVersion()
		if err != nil {
			return err
		}
		if current > 0 {
			if err := s.checkCoreUnused(); err != nil {
				return err
			}
		}
	}
	m, err := s.newMigrate()
	if err != nil {
		return err
	}

	if err := m.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration to version %d failed: %w", version, err)
	}
	return nil
}

// checkCoreUnused fails if gpkg_contents registers any table, including
// layers written by other tools before this file was adopted.
func (s *Store) checkCoreUnused() error {
	var n int
	err := s.QueryRow(`SELECT COUNT(*) FROM gpkg_contents`).Scan(&n)
	if err != nil {
		return fmt.Errorf("count registered layers: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %d table(s) registered in gpkg_contents", ErrCoreInUse, n)
	}
	return nil
}

// LatestMigrationVersion returns the highest embedded migration version.
func LatestMigrationVersion() (uint, error) {
	entries, err := fs.Glob(migrationsFS, path.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return 0, fmt.Errorf("failed to read migrations: %w", err)
	}

	var maxVersion uint
	for _, entry := range entries {
		var version uint
		// Migration files follow format: 000001_name.up.sql
		if _, err := fmt.Sscanf(path.Base(entry), "%d_", &version); err == nil && version > maxVersion {
			maxVersion = version
		}
	}
	if maxVersion == 0 {
		return 0, fmt.Errorf("could not determine latest migration version")
	}
	return maxVersion, nil
}

// MigrationStatus summarises the schema state of a GeoPackage.
type MigrationStatus struct {
	CurrentVersion uint `json:"current_version"`
	LatestVersion  uint `json:"latest_version"`
	Dirty          bool `json:"dirty"`
}

// Pending reports whether migrations remain to be applied.
func (st MigrationStatus) Pending() bool { return st.CurrentVersion < st.LatestVersion }

// Status returns the current and latest migration versions.
func (s *Store) Status() (MigrationStatus, error) {
	version, dirty, err := s.MigrateVersion()
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to get migration version: %w", err)
	}
	latest, err := LatestMigrationVersion()
	if err != nil {
		return MigrationStatus{}, err
	}
	return MigrationStatus{CurrentVersion: version, LatestVersion: latest, Dirty: dirty}, nil
}

// newMigrate creates a migrate instance reading the embedded migrations.
func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(s.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}
