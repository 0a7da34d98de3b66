package gpkg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/gridindex/internal/extent"
	"github.com/banshee-data/gridindex/internal/grid"
)

// Run matches the grid_runs table.
type Run struct {
	RunID            string        `json:"run_id"`
	Table            string        `json:"table_name"`
	Source           string        `json:"source"`
	Rows             int           `json:"rows"`
	Columns          int           `json:"columns"`
	CellWidth        float64       `json:"cell_width"`
	CellHeight       float64       `json:"cell_height"`
	CellCount        int           `json:"cell_count"`
	Extent           extent.Extent `json:"extent"`
	CreatedUnixNanos int64         `json:"created_unix_nanos"`
}

// WriteLayer replaces or creates the feature table run.Table and fills it
// with cells in one transaction. The layer is registered in gpkg_contents
// and gpkg_geometry_columns, and run is appended to grid_runs.
// If run.RunID is empty, a new UUID is generated.
func (s *Store) WriteLayer(ctx context.Context, run Run, cells []grid.Cell, overwrite bool) error {
	if err := validName(run.Table); err != nil {
		return err
	}
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedUnixNanos == 0 {
		run.CreatedUnixNanos = time.Now().UnixNano()
	}
	run.CellCount = len(cells)

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	exists, err := tableRegistered(ctx, tx, run.Table)
	if err != nil {
		return err
	}
	if exists {
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrLayerExists, run.Table)
		}
		if err := dropLayer(ctx, tx, run.Table); err != nil {
			return err
		}
	}

	create := fmt.Sprintf(`CREATE TABLE %s (
		fid         INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
		geom        POLYGON,
		page_name   TEXT    NOT NULL,
		page_number INTEGER NOT NULL,
		row_index   INTEGER NOT NULL,
		col_index   INTEGER NOT NULL
	)`, quoteIdent(run.Table))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create layer table: %w", err)
	}

	ext := run.Extent
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gpkg_contents (table_name, data_type, identifier, description, min_x, min_y, max_x, max_y, srs_id)
		 VALUES (?, 'features', ?, ?, ?, ?, ?, ?, ?)`,
		run.Table, run.Table, fmt.Sprintf("%dx%d grid index", run.Rows, run.Columns),
		ext.XMin, ext.YMin, ext.XMax, ext.YMax, SRSUndefinedCartesian,
	); err != nil {
		return fmt.Errorf("register contents: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gpkg_geometry_columns (table_name, column_name, geometry_type_name, srs_id, z, m)
		 VALUES (?, 'geom', 'POLYGON', ?, 0, 0)`,
		run.Table, SRSUndefinedCartesian,
	); err != nil {
		return fmt.Errorf("register geometry column: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (geom, page_name, page_number, row_index, col_index) VALUES (?, ?, ?, ?, ?)`,
		quoteIdent(run.Table)))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range cells {
		blob, err := EncodeGeometry(c.Polygon(), SRSUndefinedCartesian)
		if err != nil {
			return fmt.Errorf("cell %s: %w", c.PageName, err)
		}
		if _, err := stmt.ExecContext(ctx, blob, c.PageName, c.PageNumber, c.Row, c.Col); err != nil {
			return fmt.Errorf("insert cell %s: %w", c.PageName, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO grid_runs (run_id, table_name, source, grid_rows, grid_columns, cell_width, cell_height,
		                        cell_count, min_x, min_y, max_x, max_y, created_unix_nanos)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Table, run.Source, run.Rows, run.Columns, run.CellWidth, run.CellHeight,
		run.CellCount, ext.XMin, ext.YMin, ext.XMax, ext.YMax, run.CreatedUnixNanos,
	); err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func tableRegistered(ctx context.Context, tx *sql.Tx, table string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM gpkg_contents WHERE table_name = ?)
		      + (SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?)`,
		table, table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check layer %s: %w", table, err)
	}
	return n > 0, nil
}

func dropLayer(ctx context.Context, tx *sql.Tx, table string) error {
	stmts := []struct {
		query string
		args  []any
	}{
		{`DELETE FROM gpkg_geometry_columns WHERE table_name = ?`, []any{table}},
		{`DELETE FROM gpkg_contents WHERE table_name = ?`, []any{table}},
		{fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(table)), nil},
	}
	for _, st := range stmts {
		if _, err := tx.ExecContext(ctx, st.query, st.args...); err != nil {
			return fmt.Errorf("drop layer %s: %w", table, err)
		}
	}
	return nil
}

// Layers lists the feature tables registered in gpkg_contents.
func (s *Store) Layers(ctx context.Context) ([]string, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT table_name FROM gpkg_contents WHERE data_type = 'features' ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("list layers: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// resolveLayer returns the table and geometry column for table, or for the
// first feature table when table is empty.
func (s *Store) resolveLayer(ctx context.Context, table string) (string, string, error) {
	if table == "" {
		names, err := s.Layers(ctx)
		if err != nil {
			return "", "", err
		}
		if len(names) == 0 {
			return "", "", ErrNoLayer
		}
		table = names[0]
	}
	if err := validName(table); err != nil {
		return "", "", err
	}

	var column string
	err := s.QueryRowContext(ctx,
		`SELECT column_name FROM gpkg_geometry_columns WHERE table_name = ?`, table).Scan(&column)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", fmt.Errorf("%w: %s", ErrNoLayer, table)
	}
	if err != nil {
		return "", "", fmt.Errorf("geometry column for %s: %w", table, err)
	}
	if err := validName(column); err != nil {
		return "", "", err
	}
	return table, column, nil
}

// FeatureBounds returns the bounding box of every non-empty geometry in the
// layer. An empty table name selects the first feature layer.
func (s *Store) FeatureBounds(ctx context.Context, table string) ([]extent.Extent, error) {
	table, column, err := s.resolveLayer(ctx, table)
	if err != nil {
		return nil, err
	}

	rows, err := s.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s`, quoteIdent(column), quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	defer rows.Close()

	var out []extent.Extent
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		if blob == nil {
			continue
		}
		g, _, err := DecodeGeometry(blob)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", table, err)
		}
		if g == nil {
			continue
		}
		b, err := extent.FromBounds(g.Bounds())
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// LoadCells reads a layer written by WriteLayer back into grid cells,
// ordered by page number.
func (s *Store) LoadCells(ctx context.Context, table string) ([]grid.Cell, error) {
	table, column, err := s.resolveLayer(ctx, table)
	if err != nil {
		return nil, err
	}

	rows, err := s.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s, page_name, page_number, row_index, col_index FROM %s ORDER BY page_number`,
		quoteIdent(column), quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	defer rows.Close()

	var cells []grid.Cell
	for rows.Next() {
		var (
			blob []byte
			c    grid.Cell
		)
		if err := rows.Scan(&blob, &c.PageName, &c.PageNumber, &c.Row, &c.Col); err != nil {
			return nil, err
		}
		g, _, err := DecodeGeometry(blob)
		if err != nil {
			return nil, fmt.Errorf("cell %s: %w", c.PageName, err)
		}
		if g == nil {
			continue
		}
		if c.Bounds, err = extent.FromBounds(g.Bounds()); err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

// Runs returns the recorded grid runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT run_id, table_name, source, grid_rows, grid_columns, cell_width, cell_height,
		       cell_count, min_x, min_y, max_x, max_y, created_unix_nanos
		FROM grid_runs
		ORDER BY created_unix_nanos DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.Table, &r.Source, &r.Rows, &r.Columns, &r.CellWidth, &r.CellHeight,
			&r.CellCount, &r.Extent.XMin, &r.Extent.YMin, &r.Extent.XMax, &r.Extent.YMax, &r.CreatedUnixNanos); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
