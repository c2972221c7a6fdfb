package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cardroom/holdemd/internal/engine"
)

// SQLite is the durable store backend. The hands table carries the
// full hand document plus its version column for the conditional
// write; hand_actions mirrors the append-only log row per row so the
// audit trail is queryable without decoding the document.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS hands (
	table_id TEXT NOT NULL,
	hand_id  TEXT NOT NULL,
	version  INTEGER NOT NULL,
	state    TEXT NOT NULL,
	PRIMARY KEY (table_id, hand_id)
);
CREATE TABLE IF NOT EXISTS hand_actions (
	table_id  TEXT NOT NULL,
	hand_id   TEXT NOT NULL,
	seq       INTEGER NOT NULL,
	player_id TEXT NOT NULL,
	seat      INTEGER NOT NULL,
	type      TEXT NOT NULL,
	amount    INTEGER NOT NULL,
	phase     TEXT NOT NULL,
	forced    INTEGER NOT NULL DEFAULT 0,
	at        TEXT NOT NULL,
	PRIMARY KEY (table_id, hand_id, seq)
);
`

// OpenSQLite opens (creating if needed) a sqlite-backed store at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	// A single writer keeps the CAS semantics simple; sqlite serializes
	// writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Create(ctx context.Context, h *engine.Hand) error {
	state, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encoding hand %s: %w", h.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO hands (table_id, hand_id, version, state) VALUES (?, ?, ?, ?)`,
		h.TableID, h.ID, h.Version, string(state)); err != nil {
		return fmt.Errorf("inserting hand %s: %w", h.ID, err)
	}
	if err := s.appendActions(ctx, tx, h, 0); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) Get(ctx context.Context, tableID, handID string) (*engine.Hand, error) {
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM hands WHERE table_id = ? AND hand_id = ?`,
		tableID, handID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrHandNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading hand %s: %w", handID, err)
	}

	var h engine.Hand
	if err := json.Unmarshal([]byte(state), &h); err != nil {
		return nil, fmt.Errorf("%w: hand %s: %v", engine.ErrCorruptLog, handID, err)
	}
	return &h, nil
}

func (s *SQLite) Commit(ctx context.Context, h *engine.Hand, expectedVersion int64) error {
	newVersion := expectedVersion + 1
	prev := h.Version
	h.Version = newVersion
	state, err := json.Marshal(h)
	if err != nil {
		h.Version = prev
		return fmt.Errorf("encoding hand %s: %w", h.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		h.Version = prev
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE hands SET version = ?, state = ? WHERE table_id = ? AND hand_id = ? AND version = ?`,
		newVersion, string(state), h.TableID, h.ID, expectedVersion)
	if err != nil {
		h.Version = prev
		return fmt.Errorf("committing hand %s: %w", h.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		h.Version = prev
		return err
	}
	if n == 0 {
		h.Version = prev
		var exists int
		if scanErr := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM hands WHERE table_id = ? AND hand_id = ?`,
			h.TableID, h.ID).Scan(&exists); scanErr == nil && exists == 0 {
			return engine.ErrHandNotFound
		}
		return engine.ErrSuperseded
	}

	// The log is append-only: rows before the previously persisted
	// count are already present and identical.
	var persisted int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM hand_actions WHERE table_id = ? AND hand_id = ?`,
		h.TableID, h.ID).Scan(&persisted); err != nil {
		h.Version = prev
		return err
	}
	if err := s.appendActions(ctx, tx, h, persisted); err != nil {
		h.Version = prev
		return err
	}

	if err := tx.Commit(); err != nil {
		h.Version = prev
		return err
	}
	return nil
}

func (s *SQLite) appendActions(ctx context.Context, tx *sql.Tx, h *engine.Hand, from int) error {
	for _, rec := range h.Actions[from:] {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO hand_actions (table_id, hand_id, seq, player_id, seat, type, amount, phase, forced, at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			h.TableID, h.ID, rec.Seq, rec.PlayerID, rec.Seat,
			rec.Type.String(), rec.Amount, rec.Phase.String(), rec.Forced,
			rec.At.UTC().Format("2006-01-02T15:04:05.999999999Z07:00")); err != nil {
			return fmt.Errorf("appending action %d for hand %s: %w", rec.Seq, h.ID, err)
		}
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
