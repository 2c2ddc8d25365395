package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bracketforge/tournament-engine/brackets"
	"github.com/bracketforge/tournament-engine/models"
)

// EventSink receives committed engine events. Implementations must not
// assume ordering beyond what the publisher provides per tournament.
type EventSink interface {
	Publish(ctx context.Context, event models.Event) error
}

const sinkRetries = 3

// EventPublisher stamps, fans out, and retries event delivery. Events
// are collected inside a transaction and emitted only after commit, so
// sinks never observe rolled-back state.
type EventPublisher struct {
	sinks  []EventSink
	hub    *brackets.Hub
	logger *slog.Logger
}

func NewEventPublisher(hub *brackets.Hub, logger *slog.Logger, sinks ...EventSink) *EventPublisher {
	return &EventPublisher{sinks: sinks, hub: hub, logger: logger}
}

// Emit delivers events asynchronously. Failures are logged, never
// surfaced to the request that produced them.
func (p *EventPublisher) Emit(events []models.Event) {
	if len(events) == 0 {
		return
	}
	go p.deliver(events)
}

func (p *EventPublisher) deliver(events []models.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, event := range events {
		if p.hub != nil {
			p.hub.BroadcastToRoom(roomForTournament(event.TournamentID), event)
		}
		for _, sink := range p.sinks {
			var err error
			for attempt := 0; attempt < sinkRetries; attempt++ {
				if err = sink.Publish(ctx, event); err == nil {
					break
				}
				time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
			}
			if err != nil {
				p.logger.Error("event sink delivery failed",
					slog.String("event_id", event.ID),
					slog.String("type", string(event.Type)),
					slog.Int("tournament_id", event.TournamentID),
					slog.Any("error", err))
			}
		}
	}
}

func roomForTournament(tournamentID int) string {
	return fmt.Sprintf("tournament_%d", tournamentID)
}

// eventBatch accumulates events while a transaction is open.
type eventBatch struct {
	events []models.Event
}

func (b *eventBatch) add(tournamentID int, matchID *int, payload models.EventPayload) {
	b.events = append(b.events, models.Event{
		ID:           uuid.NewString(),
		Type:         payload.EventType(),
		TournamentID: tournamentID,
		MatchID:      matchID,
		OccurredAt:   time.Now().UTC(),
		Payload:      payload,
	})
}
