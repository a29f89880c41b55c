// Package replay persists the per-match action log. A match is fully
// determined by its seed and the ordered messages it accepted, so replaying
// a stored log against the same content must converge on the same state.
package replay

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/davewx7/Wizard-Tactics/internal/game"
)

const schema = `
CREATE TABLE IF NOT EXISTS matches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	seed INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS actions (
	match_id INTEGER NOT NULL REFERENCES matches(id),
	seq INTEGER NOT NULL,
	player INTEGER NOT NULL,
	message TEXT NOT NULL,
	PRIMARY KEY (match_id, seq)
);
`

// Action is one accepted message with its sender.
type Action struct {
	Player  int
	Message game.Message
}

// Store is a SQLite-backed action log.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the store at path, creating the schema when absent.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("replay store path is required")
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open replay store: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping replay store: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create replay schema: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateMatch records a new match with its RNG seed and returns its id.
func (s *Store) CreateMatch(seed int64) (int64, error) {
	res, err := s.sqlDB.Exec(`INSERT INTO matches (seed) VALUES (?)`, seed)
	if err != nil {
		return 0, fmt.Errorf("create match: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create match: %w", err)
	}
	return id, nil
}

// Append logs one accepted action at the next sequence number.
func (s *Store) Append(matchID int64, player int, msg *game.Message) error {
	encoded, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	_, err = s.sqlDB.Exec(`
		INSERT INTO actions (match_id, seq, player, message)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM actions WHERE match_id = ?), ?, ?)`,
		matchID, matchID, player, string(encoded))
	if err != nil {
		return fmt.Errorf("append action: %w", err)
	}
	return nil
}

// Seed returns the RNG seed a match was created with.
func (s *Store) Seed(matchID int64) (int64, error) {
	var seed int64
	err := s.sqlDB.QueryRow(`SELECT seed FROM matches WHERE id = ?`, matchID).Scan(&seed)
	if err != nil {
		return 0, fmt.Errorf("load match %d: %w", matchID, err)
	}
	return seed, nil
}

// Load returns a match's actions in order.
func (s *Store) Load(matchID int64) ([]Action, error) {
	rows, err := s.sqlDB.Query(
		`SELECT player, message FROM actions WHERE match_id = ? ORDER BY seq`, matchID)
	if err != nil {
		return nil, fmt.Errorf("load actions: %w", err)
	}
	defer rows.Close()

	var actions []Action
	for rows.Next() {
		var action Action
		var encoded string
		if err := rows.Scan(&action.Player, &encoded); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if err := json.Unmarshal([]byte(encoded), &action.Message); err != nil {
			return nil, fmt.Errorf("unmarshal action: %w", err)
		}
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load actions: %w", err)
	}
	return actions, nil
}
