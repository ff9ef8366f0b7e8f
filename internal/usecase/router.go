package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jdonosob/gaming-stream-project/internal/domain"
)

// Router validates raw event payloads and dispatches them to exactly one
// handler by kind. It never consults the dedup ledger; duplicate
// detection belongs to the ingestion loop so that validation failures
// are classified without touching shared state.
type Router struct {
	handlers *Handlers
	logger   *slog.Logger
}

// NewRouter creates a router over the given handler set.
func NewRouter(handlers *Handlers, logger *slog.Logger) *Router {
	return &Router{handlers: handlers, logger: logger}
}

// Route decodes, validates, and applies one event payload.
//
// The result taxonomy: decode or envelope failures are Invalid; kinds
// without a handler are UnknownKind; missing kind-specific fields are
// HandlerError. All three are permanent skips. Store failures surface
// as StoreError, which is transient: the caller holds the batch
// uncommitted and retries.
func (r *Router) Route(ctx context.Context, payload []byte) domain.RouteResult {
	var event domain.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.RouteResult{
			Status: domain.RouteInvalid,
			Reason: "payload is not a valid event object",
			Err:    err,
		}
	}
	if !event.Actionable() {
		return domain.RouteResult{
			Status:  domain.RouteInvalid,
			EventID: event.ID,
			Kind:    event.Kind,
			Reason:  "missing event_id or event_type",
		}
	}

	var err error
	switch event.Kind {
	case domain.KindPlayerScored:
		var ev domain.ScoredEvent
		if ev, err = event.AsScored(); err == nil {
			err = r.handlers.HandleScored(ctx, ev)
		}
	case domain.KindPlayerJoined:
		var ev domain.JoinedEvent
		if ev, err = event.AsJoined(); err == nil {
			err = r.handlers.HandleJoined(ctx, ev)
		}
	case domain.KindAchievementUnlocked:
		var ev domain.AchievementEvent
		if ev, err = event.AsAchievement(); err == nil {
			err = r.handlers.HandleAchievement(ctx, ev)
		}
	default:
		return domain.RouteResult{
			Status:  domain.RouteUnknownKind,
			EventID: event.ID,
			Kind:    event.Kind,
			Reason:  fmt.Sprintf("no handler for kind %q", event.Kind),
		}
	}

	if err != nil {
		if errors.Is(err, domain.ErrMissingField) {
			return domain.RouteResult{
				Status:  domain.RouteHandlerError,
				EventID: event.ID,
				Kind:    event.Kind,
				Reason:  err.Error(),
				Err:     err,
			}
		}
		return domain.RouteResult{
			Status:  domain.RouteStoreError,
			EventID: event.ID,
			Kind:    event.Kind,
			Reason:  "aggregate store unavailable",
			Err:     err,
		}
	}

	return domain.RouteResult{
		Status:  domain.RouteApplied,
		EventID: event.ID,
		Kind:    event.Kind,
	}
}
