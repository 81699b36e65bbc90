// Package sqlite persists generation-labeled graphs in a SQLite database.
//
// Each call to [Store.Save] records one run: the people in input order with
// their parent references and assigned generations. [Store.Load] rebuilds
// the graph of a run, so later runs can be compared or re-rendered without
// the original CSV.
//
// The pure-Go modernc.org/sqlite driver is used, so no cgo toolchain is
// required.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	errs "github.com/matzehuels/lineage/pkg/errors"
	"github.com/matzehuels/lineage/pkg/family"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	anchor INTEGER,
	unresolved INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS people (
	run_id TEXT NOT NULL REFERENCES runs(id),
	pos INTEGER NOT NULL,
	id INTEGER NOT NULL,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	birth TEXT NOT NULL,
	death TEXT NOT NULL,
	mother INTEGER,
	father INTEGER,
	generation INTEGER,
	PRIMARY KEY (run_id, pos)
);
CREATE INDEX IF NOT EXISTS idx_people_person ON people(id);
CREATE INDEX IF NOT EXISTS idx_people_generation ON people(run_id, generation);
`

// Run describes one stored assignment.
type Run struct {
	ID         string
	Source     string
	Anchor     *int
	People     int
	Unresolved int
	CreatedAt  time.Time
}

// Store is a SQLite-backed run store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Path returns the database path given to [Open].
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Save stores g under runID. Saving an existing runID replaces it.
func (s *Store) Save(ctx context.Context, runID, source string, g *family.Graph, anchor *int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := deleteRun(ctx, tx, runID); err != nil {
		return fmt.Errorf("replace run: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, source, anchor, unresolved, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, source, nullInt(anchor), len(g.Unresolved()), time.Now().UnixNano(),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO people (run_id, pos, id, first_name, last_name, birth, death, mother, father, generation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for pos, n := range g.Nodes() {
		var gen *int
		if v, ok := n.Generation.Value(); ok {
			gen = &v
		}
		if _, err := stmt.ExecContext(ctx,
			runID, pos, n.ID, n.FirstName, n.LastName, n.Birth, n.Death,
			nullInt(n.Mother), nullInt(n.Father), nullInt(gen),
		); err != nil {
			return fmt.Errorf("insert person %d: %w", n.ID, err)
		}
	}
	return tx.Commit()
}

// Load rebuilds the graph stored under runID, generations included.
func (s *Store) Load(ctx context.Context, runID string) (*family.Graph, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.ErrCodeNotFound, "run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, birth, death, mother, father, generation
		FROM people WHERE run_id = ? ORDER BY pos`, runID)
	if err != nil {
		return nil, fmt.Errorf("query people: %w", err)
	}
	defer rows.Close()

	var (
		people []family.Person
		gens   []sql.NullInt64
	)
	for rows.Next() {
		var (
			p              family.Person
			mother, father sql.NullInt64
			gen            sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Birth, &p.Death, &mother, &father, &gen); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		p.Mother = intPtr(mother)
		p.Father = intPtr(father)
		people = append(people, p)
		gens = append(gens, gen)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate people: %w", err)
	}

	g := family.Build(people)
	for i, n := range g.Nodes() {
		if gens[i].Valid {
			n.Generation = family.Assigned(int(gens[i].Int64))
		}
	}
	return g, nil
}

const runColumns = `
	SELECT r.id, r.source, r.anchor, r.unresolved, r.created_at, COUNT(p.pos)
	FROM runs r LEFT JOIN people p ON p.run_id = r.id`

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, runColumns+`
		GROUP BY r.id
		ORDER BY r.created_at DESC, r.id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run returns the summary of one stored run.
func (s *Store) Run(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, runColumns+`
		WHERE r.id = ?
		GROUP BY r.id`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, errs.New(errs.ErrCodeNotFound, "run %s not found", runID)
	}
	return r, err
}

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var (
		r       Run
		anchor  sql.NullInt64
		created int64
	)
	if err := row.Scan(&r.ID, &r.Source, &anchor, &r.Unresolved, &created, &r.People); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.Anchor = intPtr(anchor)
	r.CreatedAt = time.Unix(0, created).UTC()
	return r, nil
}

// Delete removes a run and its people.
func (s *Store) Delete(ctx context.Context, runID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.New(errs.ErrCodeNotFound, "run %s not found", runID)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM people WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete people: %w", err)
	}
	return tx.Commit()
}

func deleteRun(ctx context.Context, tx *sql.Tx, runID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM people WHERE run_id = ?`, runID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	return err
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
