package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/solatis/cuitarget/internal/ontology"
	"github.com/solatis/cuitarget/internal/types"
)

const (
	metaHierarchy  = "hierarchy"
	metaImportedAt = "imported_at"
)

// Store persists ontology.Tables.
type Store struct {
	db      *sqlx.DB
	queries *Queries
	log     zerolog.Logger
}

// SaveStats counts the rows written by SaveTables.
type SaveStats struct {
	Concepts int
	Names    int
	TypeIDs  int
	Edges    int
}

// NewStore wraps a migrated database.
func NewStore(db *sqlx.DB, log zerolog.Logger) (*Store, error) {
	queries, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, queries: queries, log: log.With().Str("component", "store").Logger()}, nil
}

type conceptRow struct {
	CUI           string         `db:"cui"`
	PreferredName sql.NullString `db:"preferred_name"`
}

type nameRow struct {
	CUI  string `db:"cui"`
	Name string `db:"name"`
}

type typeRow struct {
	CUI    string `db:"cui"`
	TypeID string `db:"type_id"`
}

type edgeRow struct {
	Parent string `db:"parent_cui"`
	Child  string `db:"child_cui"`
}

// LoadTables reads the stored ontology. The returned Children is nil when the
// import carried no hierarchy. Returns types.ErrNotFound if nothing was imported.
func (s *Store) LoadTables(ctx context.Context) (ontology.Tables, error) {
	var hierarchy string
	err := s.queries.Get(ctx, &hierarchy, "get-meta", metaHierarchy)
	if errors.Is(err, sql.ErrNoRows) {
		return ontology.Tables{}, fmt.Errorf("%w: no ontology has been imported", types.ErrNotFound)
	}
	if err != nil {
		return ontology.Tables{}, fmt.Errorf("failed to read ontology metadata: %w", err)
	}

	t := ontology.Tables{
		Names:          map[string]ontology.Set{},
		CUIsByName:     map[string]ontology.Set{},
		TypeIDs:        map[string]ontology.Set{},
		PreferredNames: map[string]string{},
	}

	var concepts []conceptRow
	if err := s.queries.Select(ctx, &concepts, "list-concepts"); err != nil {
		return ontology.Tables{}, fmt.Errorf("failed to load concepts: %w", err)
	}
	for _, c := range concepts {
		if c.PreferredName.Valid {
			t.PreferredNames[c.CUI] = c.PreferredName.String
		}
	}

	var names []nameRow
	if err := s.queries.Select(ctx, &names, "list-concept-names"); err != nil {
		return ontology.Tables{}, fmt.Errorf("failed to load concept names: %w", err)
	}
	for _, n := range names {
		addTo(t.Names, n.CUI, n.Name)
		addTo(t.CUIsByName, n.Name, n.CUI)
	}

	var typeIDs []typeRow
	if err := s.queries.Select(ctx, &typeIDs, "list-concept-types"); err != nil {
		return ontology.Tables{}, fmt.Errorf("failed to load concept types: %w", err)
	}
	for _, r := range typeIDs {
		addTo(t.TypeIDs, r.CUI, r.TypeID)
	}

	if withHierarchy, _ := strconv.ParseBool(hierarchy); withHierarchy {
		var edges []edgeRow
		if err := s.queries.Select(ctx, &edges, "list-concept-children"); err != nil {
			return ontology.Tables{}, fmt.Errorf("failed to load hierarchy: %w", err)
		}
		t.Children = make(map[string]ontology.Set)
		for _, e := range edges {
			addTo(t.Children, e.Parent, e.Child)
		}
	}

	s.log.Debug().
		Int("concepts", len(concepts)).
		Int("names", len(names)).
		Int("type_ids", len(typeIDs)).
		Bool("hierarchy", t.Children != nil).
		Msg("ontology loaded")

	return t, nil
}

// SaveTables replaces the stored ontology with t in one transaction.
func (s *Store) SaveTables(ctx context.Context, t ontology.Tables) (SaveStats, error) {
	var stats SaveStats

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, name := range []string{
		"delete-concept-children",
		"delete-concept-types",
		"delete-concept-names",
		"delete-concepts",
	} {
		if _, err := s.queries.Exec(ctx, tx, name); err != nil {
			return stats, fmt.Errorf("failed to clear tables (%s): %w", name, err)
		}
	}

	// Every CUI with names, types or a preferred name gets a concepts row so
	// the child tables can reference it.
	cuis := make(map[string]struct{}, len(t.Names))
	for _, m := range []map[string]ontology.Set{t.Names, t.TypeIDs} {
		for cui := range m {
			cuis[cui] = struct{}{}
		}
	}
	for cui := range t.PreferredNames {
		cuis[cui] = struct{}{}
	}

	err = s.insertEach(ctx, tx, "insert-concept", slices.Sorted(maps.Keys(cuis)), func(stmt *sqlx.Stmt, cui string) error {
		var pref sql.NullString
		if p, ok := t.PreferredNames[cui]; ok {
			pref = sql.NullString{String: p, Valid: true}
		}
		_, err := stmt.ExecContext(ctx, cui, pref)
		stats.Concepts++
		return err
	})
	if err != nil {
		return stats, err
	}

	if stats.Names, err = s.insertPairs(ctx, tx, "insert-concept-name", t.Names); err != nil {
		return stats, err
	}
	if stats.TypeIDs, err = s.insertPairs(ctx, tx, "insert-concept-type", t.TypeIDs); err != nil {
		return stats, err
	}
	if t.Children != nil {
		if stats.Edges, err = s.insertPairs(ctx, tx, "insert-concept-child", t.Children); err != nil {
			return stats, err
		}
	}

	meta := map[string]string{
		metaHierarchy:  strconv.FormatBool(t.Children != nil),
		metaImportedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, key := range slices.Sorted(maps.Keys(meta)) {
		if _, err := s.queries.Exec(ctx, tx, "delete-meta", key); err != nil {
			return stats, fmt.Errorf("failed to write metadata %s: %w", key, err)
		}
		if _, err := s.queries.Exec(ctx, tx, "insert-meta", key, meta[key]); err != nil {
			return stats, fmt.Errorf("failed to write metadata %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("failed to commit ontology: %w", err)
	}

	s.log.Info().
		Int("concepts", stats.Concepts).
		Int("names", stats.Names).
		Int("type_ids", stats.TypeIDs).
		Int("edges", stats.Edges).
		Msg("ontology saved")

	return stats, nil
}

// Summary describes the stored ontology.
type Summary struct {
	ImportedAt time.Time
	Concepts   int
	Hierarchy  bool
}

// Summary reports when SaveTables last ran, how many concepts it stored and
// whether a hierarchy came with them. Returns types.ErrNotFound before the
// first import.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	var importedAt, hierarchy string
	err := s.queries.Get(ctx, &importedAt, "get-meta", metaImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, fmt.Errorf("%w: no ontology has been imported", types.ErrNotFound)
	}
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read ontology metadata: %w", err)
	}
	if err := s.queries.Get(ctx, &hierarchy, "get-meta", metaHierarchy); err != nil {
		return Summary{}, fmt.Errorf("failed to read ontology metadata: %w", err)
	}

	var sum Summary
	if sum.ImportedAt, err = time.Parse(time.RFC3339, importedAt); err != nil {
		return Summary{}, fmt.Errorf("invalid %s metadata: %w", metaImportedAt, err)
	}
	if err := s.queries.Get(ctx, &sum.Concepts, "count-concepts"); err != nil {
		return Summary{}, fmt.Errorf("failed to count concepts: %w", err)
	}
	sum.Hierarchy, _ = strconv.ParseBool(hierarchy)
	return sum, nil
}

func (s *Store) insertEach(ctx context.Context, tx *sqlx.Tx, query string, keys []string, fn func(*sqlx.Stmt, string) error) error {
	stmt, err := s.queries.Prepare(ctx, tx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare %s: %w", query, err)
	}
	defer stmt.Close()

	for _, key := range keys {
		if err := fn(stmt, key); err != nil {
			return fmt.Errorf("%s %s: %w", query, key, err)
		}
	}
	return nil
}

// insertPairs writes one row per (key, member) of m and returns the row count.
func (s *Store) insertPairs(ctx context.Context, tx *sqlx.Tx, query string, m map[string]ontology.Set) (int, error) {
	n := 0
	err := s.insertEach(ctx, tx, query, slices.Sorted(maps.Keys(m)), func(stmt *sqlx.Stmt, key string) error {
		for _, member := range slices.Sorted(maps.Keys(m[key])) {
			if _, err := stmt.ExecContext(ctx, key, member); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

func addTo(m map[string]ontology.Set, key, member string) {
	set, ok := m[key]
	if !ok {
		set = ontology.Set{}
		m[key] = set
	}
	set[member] = struct{}{}
}
