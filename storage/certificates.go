package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bracketforge/tournament-engine/models"
)

// CertificateSink issues a placement certificate document for every
// standing once a tournament concludes. Other event kinds pass through
// untouched.
type CertificateSink struct {
	store ObjectStore
}

func NewCertificateSink(store ObjectStore) *CertificateSink {
	return &CertificateSink{store: store}
}

type certificate struct {
	TournamentID int                   `json:"tournament_id"`
	Placement    int                   `json:"placement"`
	Recipient    models.ParticipantRef `json:"recipient"`
	IssuedAt     time.Time             `json:"issued_at"`
	URL          string                `json:"url,omitempty"`
}

func (c *CertificateSink) Publish(ctx context.Context, event models.Event) error {
	if event.Type != models.EventTournamentConcluded {
		return nil
	}
	payload, ok := event.Payload.(models.TournamentConcludedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type for %s event", event.Type)
	}

	for _, standing := range payload.Standings {
		cert := certificate{
			TournamentID: event.TournamentID,
			Placement:    standing.Placement,
			Recipient:    standing.Recipient,
			IssuedAt:     event.OccurredAt,
		}
		key := fmt.Sprintf("certificates/tournament_%d/registration_%d.json",
			event.TournamentID, standing.RegistrationID)
		cert.URL = c.store.PublicURL(key)

		doc, err := json.Marshal(cert)
		if err != nil {
			return fmt.Errorf("failed to marshal certificate for registration %d: %w", standing.RegistrationID, err)
		}
		if _, err := c.store.Put(ctx, key, "application/json", bytes.NewReader(doc)); err != nil {
			return err
		}
	}
	return nil
}
