// Package store persists collections, their games and pairwise distances in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNameInUse is returned when a collection name is already taken.
	ErrNameInUse = errors.New("collection name already in use")
)

const schema = `
CREATE TABLE IF NOT EXISTS collection (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS game (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	collection_id INTEGER NOT NULL REFERENCES collection(id) ON DELETE CASCADE,
	nr            INTEGER NOT NULL,
	author        TEXT NOT NULL,
	source        TEXT NOT NULL,
	year          TEXT,
	pdn           TEXT NOT NULL,
	fen_string    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS game_collection ON game(collection_id, nr);
CREATE TABLE IF NOT EXISTS distance (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	collection_id INTEGER NOT NULL REFERENCES collection(id) ON DELETE CASCADE,
	game1_id      INTEGER NOT NULL REFERENCES game(id) ON DELETE CASCADE,
	game2_id      INTEGER NOT NULL REFERENCES game(id) ON DELETE CASCADE,
	distance      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS distance_collection ON distance(collection_id);
`

// Collection is a named batch of uploaded games.
type Collection struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Games int    `json:"games"`
}

// Game is a stored game row. Year is empty when the date was unknown.
type Game struct {
	ID           int64  `json:"id"`
	CollectionID int64  `json:"collectionId"`
	Nr           int    `json:"nr"`
	Author       string `json:"author"`
	Source       string `json:"source"`
	Year         string `json:"year,omitempty"`
	PDN          string `json:"pdn"`
	Fingerprint  string `json:"fenString"`
}

// Distance is a stored pair distance between two game rows.
type Distance struct {
	ID           int64 `json:"id"`
	CollectionID int64 `json:"collectionId"`
	Game1ID      int64 `json:"game1Id"`
	Game2ID      int64 `json:"game2Id"`
	Distance     int   `json:"distance"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema. Use
// ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases and the foreign_keys pragma
	// consistent; SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA foreign_keys = ON", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, multierr.Append(fmt.Errorf("initialize %s: %w", path, err), db.Close())
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateCollection inserts a collection and returns its ID.
func (s *Store) CreateCollection(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO collection (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%q: %w", name, ErrNameInUse)
		}
		return 0, fmt.Errorf("insert collection: %w", err)
	}
	return res.LastInsertId()
}

// DeleteCollection removes a collection with its games and distances.
func (s *Store) DeleteCollection(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collection WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete collection %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const collectionColumns = `SELECT c.id, c.name, (SELECT COUNT(*) FROM game g WHERE g.collection_id = c.id) FROM collection c`

func (s *Store) CollectionByName(ctx context.Context, name string) (Collection, error) {
	var c Collection
	err := s.db.QueryRowContext(ctx, collectionColumns+` WHERE c.name = ?`, name).Scan(&c.ID, &c.Name, &c.Games)
	if errors.Is(err, sql.ErrNoRows) {
		return Collection{}, ErrNotFound
	}
	if err != nil {
		return Collection{}, fmt.Errorf("query collection %q: %w", name, err)
	}
	return c, nil
}

// ListCollections returns all collections ordered by name.
func (s *Store) ListCollections(ctx context.Context) (collections []Collection, err error) {
	rows, err := s.db.QueryContext(ctx, collectionColumns+` ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer func() { err = multierr.Append(err, rows.Close()) }()

	collections = []Collection{}
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.Games); err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// InsertGames stores games in one transaction and returns their IDs in order.
func (s *Store) InsertGames(ctx context.Context, collectionID int64, games []Game) ([]int64, error) {
	ids := make([]int64, 0, len(games))
	err := s.inTx(ctx, func(tx *sql.Tx) (err error) {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO game
			(collection_id, nr, author, source, year, pdn, fen_string) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, stmt.Close()) }()

		for _, g := range games {
			res, err := stmt.ExecContext(ctx, collectionID, g.Nr, g.Author, g.Source, nullable(g.Year), g.PDN, g.Fingerprint)
			if err != nil {
				return fmt.Errorf("insert game %d: %w", g.Nr, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// InsertDistances stores distances in one transaction.
func (s *Store) InsertDistances(ctx context.Context, collectionID int64, distances []Distance) error {
	return s.inTx(ctx, func(tx *sql.Tx) (err error) {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO distance
			(collection_id, game1_id, game2_id, distance) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, stmt.Close()) }()

		for _, d := range distances {
			if _, err := stmt.ExecContext(ctx, collectionID, d.Game1ID, d.Game2ID, d.Distance); err != nil {
				return fmt.Errorf("insert distance %d-%d: %w", d.Game1ID, d.Game2ID, err)
			}
		}
		return nil
	})
}

const gameColumns = `SELECT id, collection_id, nr, author, source, year, pdn, fen_string FROM game`

// GamesByCollection returns a collection's games ordered by nr.
func (s *Store) GamesByCollection(ctx context.Context, collectionID int64) (games []Game, err error) {
	rows, err := s.db.QueryContext(ctx, gameColumns+` WHERE collection_id = ? ORDER BY nr`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer func() { err = multierr.Append(err, rows.Close()) }()

	games = []Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (s *Store) GameByID(ctx context.Context, id int64) (Game, error) {
	g, err := scanGame(s.db.QueryRowContext(ctx, gameColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Game{}, ErrNotFound
	}
	return g, err
}

const distanceColumns = `SELECT id, collection_id, game1_id, game2_id, distance FROM distance`

// DistancesByCollection returns a collection's distances in insertion order.
func (s *Store) DistancesByCollection(ctx context.Context, collectionID int64) (distances []Distance, err error) {
	rows, err := s.db.QueryContext(ctx, distanceColumns+` WHERE collection_id = ? ORDER BY id`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("query distances: %w", err)
	}
	defer func() { err = multierr.Append(err, rows.Close()) }()

	distances = []Distance{}
	for rows.Next() {
		var d Distance
		if err := rows.Scan(&d.ID, &d.CollectionID, &d.Game1ID, &d.Game2ID, &d.Distance); err != nil {
			return nil, err
		}
		distances = append(distances, d)
	}
	return distances, rows.Err()
}

func (s *Store) DistanceByID(ctx context.Context, id int64) (Distance, error) {
	var d Distance
	err := s.db.QueryRowContext(ctx, distanceColumns+` WHERE id = ?`, id).
		Scan(&d.ID, &d.CollectionID, &d.Game1ID, &d.Game2ID, &d.Distance)
	if errors.Is(err, sql.ErrNoRows) {
		return Distance{}, ErrNotFound
	}
	if err != nil {
		return Distance{}, fmt.Errorf("query distance %d: %w", id, err)
	}
	return d, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (Game, error) {
	var g Game
	var year sql.NullString
	if err := row.Scan(&g.ID, &g.CollectionID, &g.Nr, &g.Author, &g.Source, &year, &g.PDN, &g.Fingerprint); err != nil {
		return Game{}, err
	}
	g.Year = year.String
	return g, nil
}

// inTx runs fn in a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		return multierr.Append(err, tx.Rollback())
	}
	return tx.Commit()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// IsBusy reports whether err is SQLite refusing access because another
// connection holds a lock. Such errors are worth retrying.
func IsBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}
