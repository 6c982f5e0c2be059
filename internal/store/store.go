// Package store persists call graph snapshots to SQLite. Weight assignments
// are never stored; they are only valid for the transmission they were made
// for.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/phobologic/callrank/internal/graph"
	"github.com/phobologic/callrank/internal/model"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when a node does not exist.
var ErrNotFound = errors.New("node not found")

// Node is one stored function.
type Node struct {
	ID         int64
	Name       string
	OutDegree  int
	Complexity int
	Priority   int
}

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// Open opens or creates a SQLite database at the given path
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Clear removes all data from the database
func (db *DB) Clear(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM edges; DELETE FROM nodes;")
	return err
}

// Save replaces the stored snapshot with g and its scores in one transaction.
func (db *DB) Save(ctx context.Context, g *graph.CallGraph, cm model.ComplexityMap, pm model.PriorityMap) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM edges; DELETE FROM nodes;"); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}

	nodeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO nodes (name, out_degree, complexity, priority) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()

	ids := make(map[string]int64, g.Len())
	for _, name := range g.Nodes() {
		c, ok := cm[name]
		if !ok {
			c = cm.Get(graph.Bare(name))
		}
		res, err := nodeStmt.ExecContext(ctx, name, g.OutDegree(name), c, pm[name])
		if err != nil {
			return fmt.Errorf("inserting node %s: %w", name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		ids[name] = id
	}

	edgeStmt, err := tx.PrepareContext(ctx, `INSERT INTO edges (caller_id, callee_id) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for _, e := range g.Edges() {
		if _, err := edgeStmt.ExecContext(ctx, ids[e.Caller], ids[e.Callee]); err != nil {
			return fmt.Errorf("inserting edge %s -> %s: %w", e.Caller, e.Callee, err)
		}
	}

	return tx.Commit()
}

// GetNode returns a node by name
func (db *DB) GetNode(ctx context.Context, name string) (*Node, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, name, out_degree, complexity, priority FROM nodes WHERE name = ?`, name)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return n, err
}

// TopNodes returns up to limit nodes in rank order. A limit <= 0 returns all.
func (db *DB) TopNodes(ctx context.Context, limit int) ([]*Node, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, out_degree, complexity, priority FROM nodes
		 ORDER BY priority DESC, name ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// Callees returns the functions name calls directly
func (db *DB) Callees(ctx context.Context, name string) ([]*Node, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT n.id, n.name, n.out_degree, n.complexity, n.priority FROM nodes n
		 JOIN edges e ON e.callee_id = n.id
		 JOIN nodes c ON c.id = e.caller_id
		 WHERE c.name = ?
		 ORDER BY n.name`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// Callers returns the functions that call name directly
func (db *DB) Callers(ctx context.Context, name string) ([]*Node, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT n.id, n.name, n.out_degree, n.complexity, n.priority FROM nodes n
		 JOIN edges e ON e.caller_id = n.id
		 JOIN nodes c ON c.id = e.callee_id
		 WHERE c.name = ?
		 ORDER BY n.name`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// Stats returns the number of stored nodes and edges.
func (db *DB) Stats(ctx context.Context) (nodes, edges int, err error) {
	if err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&nodes); err != nil {
		return 0, 0, err
	}
	if err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&edges); err != nil {
		return 0, 0, err
	}
	return nodes, edges, nil
}

func scanNode(row *sql.Row) (*Node, error) {
	var n Node
	if err := row.Scan(&n.ID, &n.Name, &n.OutDegree, &n.Complexity, &n.Priority); err != nil {
		return nil, err
	}
	return &n, nil
}

func scanNodes(rows *sql.Rows) ([]*Node, error) {
	var nodes []*Node
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.ID, &n.Name, &n.OutDegree, &n.Complexity, &n.Priority); err != nil {
			return nil, err
		}
		nodes = append(nodes, &n)
	}
	return nodes, rows.Err()
}
