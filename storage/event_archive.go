package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/bracketforge/tournament-engine/models"
)

// EventArchive writes every committed engine event to the object store
// as one JSON document, keyed so a tournament's history lists in
// chronological order.
type EventArchive struct {
	store ObjectStore
}

func NewEventArchive(store ObjectStore) *EventArchive {
	return &EventArchive{store: store}
}

func (a *EventArchive) Publish(ctx context.Context, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
	}
	key := fmt.Sprintf("events/tournament_%d/%s_%s.json",
		event.TournamentID, event.OccurredAt.UTC().Format("20060102T150405.000Z0700"), event.ID)

	if _, err := a.store.Put(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		return err
	}
	return nil
}
