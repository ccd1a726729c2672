// Package archive persists accepted problems in SQLite.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/snow-ghost/geosynth/core"
)

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("problem not found")

// Filter narrows List and Count.
type Filter struct {
	Primitive      string
	MinProofLength int
	Forced         *bool
	Since          time.Time
	Limit          int
	Offset         int
}

// PrimitiveStats aggregates accepted problems per base primitive.
type PrimitiveStats struct {
	Primitive      string  `json:"primitive"`
	Problems       int64   `json:"problems"`
	Forced         int64   `json:"forced"`
	AvgProofLength float64 `json:"avg_proof_length"`
	MaxProofLength int     `json:"max_proof_length"`
}

// Store is a SQLite-backed problem archive
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive at path. ":memory:" is allowed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" a single database and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return s, nil
}

func (s *Store) createTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS problems (
		id TEXT PRIMARY KEY,
		primitive TEXT NOT NULL,
		original TEXT NOT NULL,
		script TEXT NOT NULL,
		goal TEXT NOT NULL,
		aux_count INTEGER NOT NULL,
		base_arity INTEGER NOT NULL,
		proof_length INTEGER NOT NULL,
		score INTEGER NOT NULL,
		rounds INTEGER NOT NULL,
		forced BOOLEAN NOT NULL,
		solution TEXT NOT NULL,
		proof TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_problems_primitive ON problems(primitive);
	CREATE INDEX IF NOT EXISTS idx_problems_proof_length ON problems(proof_length);
	CREATE INDEX IF NOT EXISTS idx_problems_created_at ON problems(created_at);
	`

	_, err := s.db.Exec(query)
	return err
}

// Save inserts or replaces a problem.
func (s *Store) Save(ctx context.Context, p core.Problem) error {
	proof, err := json.Marshal(p.Proof)
	if err != nil {
		return fmt.Errorf("encode proof: %w", err)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.CreatedAt = p.CreatedAt.UTC()

	query := `
	INSERT OR REPLACE INTO problems (
		id, primitive, original, script, goal, aux_count, base_arity,
		proof_length, score, rounds, forced, solution, proof, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		p.ID,
		p.Primitive,
		p.Original,
		p.Script,
		p.Goal,
		p.AuxCount,
		p.BaseArity,
		p.ProofLength,
		p.Score,
		p.Rounds,
		p.Forced,
		p.Solution,
		string(proof),
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save problem %s: %w", p.ID, err)
	}
	return nil
}

const columns = `id, primitive, original, script, goal, aux_count, base_arity,
	proof_length, score, rounds, forced, solution, proof, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProblem(row scanner) (core.Problem, error) {
	var p core.Problem
	var proof string
	err := row.Scan(
		&p.ID,
		&p.Primitive,
		&p.Original,
		&p.Script,
		&p.Goal,
		&p.AuxCount,
		&p.BaseArity,
		&p.ProofLength,
		&p.Score,
		&p.Rounds,
		&p.Forced,
		&p.Solution,
		&proof,
		&p.CreatedAt,
	)
	if err != nil {
		return core.Problem{}, err
	}
	if err := json.Unmarshal([]byte(proof), &p.Proof); err != nil {
		return core.Problem{}, fmt.Errorf("decode proof of %s: %w", p.ID, err)
	}
	return p, nil
}

// Get fetches one problem by id.
func (s *Store) Get(ctx context.Context, id string) (core.Problem, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM problems WHERE id = ?", id)
	p, err := scanProblem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Problem{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, err
}

// List returns problems matching filter, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]core.Problem, error) {
	where, args := buildWhereClause(filter)
	query := "SELECT " + columns + " FROM problems" + where + " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Problem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns how many problems match filter, ignoring Limit and Offset.
func (s *Store) Count(ctx context.Context, filter Filter) (int64, error) {
	where, args := buildWhereClause(filter)
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM problems"+where, args...).Scan(&n)
	return n, err
}

// StatsByPrimitive aggregates the archive per base primitive.
func (s *Store) StatsByPrimitive(ctx context.Context) ([]PrimitiveStats, error) {
	query := `
	SELECT
		primitive,
		COUNT(*),
		COALESCE(SUM(CASE WHEN forced THEN 1 ELSE 0 END), 0),
		COALESCE(AVG(proof_length), 0),
		COALESCE(MAX(proof_length), 0)
	FROM problems
	GROUP BY primitive
	ORDER BY primitive
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PrimitiveStats
	for rows.Next() {
		var st PrimitiveStats
		if err := rows.Scan(&st.Primitive, &st.Problems, &st.Forced, &st.AvgProofLength, &st.MaxProofLength); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func buildWhereClause(filter Filter) (string, []any) {
	var conds []string
	var args []any

	if filter.Primitive != "" {
		conds = append(conds, "primitive = ?")
		args = append(args, filter.Primitive)
	}
	if filter.MinProofLength > 0 {
		conds = append(conds, "proof_length >= ?")
		args = append(args, filter.MinProofLength)
	}
	if filter.Forced != nil {
		conds = append(conds, "forced = ?")
		args = append(args, *filter.Forced)
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
