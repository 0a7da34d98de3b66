// Package gpkg stores grid index layers in an OGC GeoPackage, the SQLite
// container most GIS tools open directly.
//
// The core GeoPackage tables and the grid_runs bookkeeping table are managed
// by embedded migrations. Feature tables are created per layer at write time.
package gpkg

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"

	_ "modernc.org/sqlite"
)

const (
	// applicationID is "GPKG" in ASCII, required by the GeoPackage spec.
	applicationID = 0x47504B47
	// userVersion encodes GeoPackage 1.3.0.
	userVersion = 10300
)

var (
	// ErrLayerExists is returned when a layer is already present and overwrite is off.
	ErrLayerExists = errors.New("gpkg: layer already exists")
	// ErrNoLayer is returned when a GeoPackage holds no feature table to read.
	ErrNoLayer = errors.New("gpkg: no feature layer found")
	// ErrBadName is returned for table names that are not plain SQL identifiers.
	ErrBadName = errors.New("gpkg: layer name must match [A-Za-z_][A-Za-z0-9_]*")
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store wraps a GeoPackage database handle.
type Store struct {
	*sql.DB
	path string
}

// Open opens or creates a GeoPackage for writing and brings its schema up
// to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open geopackage %s: %w", path, err)
	}
	// A single connection keeps PRAGMAs and transactions on the same handle.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		fmt.Sprintf("PRAGMA application_id=%d", applicationID),
		fmt.Sprintf("PRAGMA user_version=%d", userVersion),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", p, err)
		}
	}

	s := &Store{DB: db, path: path}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("opened geopackage %s", path)
	return s, nil
}

// OpenExisting opens a GeoPackage for reading without touching its schema.
// It fails if path does not exist rather than creating an empty database.
func OpenExisting(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open geopackage: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open geopackage %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return &Store{DB: db, path: path}, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// ApplicationID reads the application_id header field.
func (s *Store) ApplicationID() (int64, error) {
	var id int64
	err := s.QueryRow("PRAGMA application_id").Scan(&id)
	return id, err
}

func validName(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return nil
}

// quoteIdent quotes a validated identifier for use in SQL text.
func quoteIdent(name string) string { return `"` + name + `"` }
