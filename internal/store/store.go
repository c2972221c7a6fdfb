// Package store persists Hand records under optimistic versioning.
// Every mutation is computed from a snapshot read through Get and
// lands through Commit, which applies the whole new state only if the
// stored version still matches the version the writer read. No locks
// span the read-compute-write cycle; the version compare is the sole
// concurrency control.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cardroom/holdemd/internal/engine"
)

// Store is the commit layer the engine's callers drive.
type Store interface {
	// Create inserts a new hand at its initial version.
	Create(ctx context.Context, h *engine.Hand) error

	// Get returns an isolated copy of the hand; mutating it does not
	// affect the stored state until Commit.
	Get(ctx context.Context, tableID, handID string) (*engine.Hand, error)

	// Commit writes h if the stored version still equals
	// expectedVersion, bumping h.Version to expectedVersion+1.
	// Returns engine.ErrSuperseded if another writer got there first;
	// in that case nothing was written.
	Commit(ctx context.Context, h *engine.Hand, expectedVersion int64) error

	Close() error
}

// cloneHand deep-copies a hand through its JSON form so callers can
// never alias stored state.
func cloneHand(h *engine.Hand) (*engine.Hand, error) {
	raw, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encoding hand %s: %w", h.ID, err)
	}
	var out engine.Hand
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding hand %s: %w", h.ID, err)
	}
	return &out, nil
}

func handKey(tableID, handID string) string {
	return tableID + "/" + handID
}
