package domain

import (
	"errors"
	"fmt"
	"time"
)

// EventKind identifies the type of a game event on the wire.
type EventKind string

const (
	KindPlayerScored        EventKind = "player_scored"
	KindPlayerJoined        EventKind = "player_joined"
	KindAchievementUnlocked EventKind = "achievement_unlocked"
)

// ErrMissingField marks a permanent data-shape failure: the event is
// well-formed JSON but lacks a field its kind requires. Events failing
// this way are skipped, never retried.
var ErrMissingField = errors.New("missing required field")

// Event is the canonical envelope read from the game-events log. Payload
// fields beyond the common header are kind-specific; use the As* methods
// to obtain a validated, typed variant.
type Event struct {
	ID         string    `json:"event_id"`
	Kind       EventKind `json:"event_type"`
	OccurredAt time.Time `json:"timestamp"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`

	// player_scored
	Points int64  `json:"points,omitempty"`
	Action string `json:"action,omitempty"`

	// player_scored, player_joined
	GameID string `json:"game_id,omitempty"`

	// achievement_unlocked
	AchievementName   string `json:"achievement_name,omitempty"`
	AchievementRarity string `json:"achievement_rarity,omitempty"`
}

// Actionable reports whether the envelope carries the two fields every
// event must have before any routing decision is made.
func (e Event) Actionable() bool {
	return e.ID != "" && e.Kind != ""
}

// ScoredEvent is the validated player_scored variant.
type ScoredEvent struct {
	ID         string
	OccurredAt time.Time
	PlayerID   string
	PlayerName string
	Points     int64
	Action     string
	GameID     string
}

// JoinedEvent is the validated player_joined variant.
type JoinedEvent struct {
	ID         string
	OccurredAt time.Time
	PlayerID   string
	PlayerName string
	GameID     string
}

// AchievementEvent is the validated achievement_unlocked variant.
type AchievementEvent struct {
	ID         string
	OccurredAt time.Time
	PlayerName string
	Name       string
	Rarity     string
}

// AsScored converts the envelope into its scored variant, checking the
// fields the scored handler depends on. A zero-point event is valid; a
// missing action is normalized to "unknown" as the producer contract
// treats it as optional.
func (e Event) AsScored() (ScoredEvent, error) {
	if e.PlayerID == "" {
		return ScoredEvent{}, fmt.Errorf("%w: player_id", ErrMissingField)
	}
	if e.PlayerName == "" {
		return ScoredEvent{}, fmt.Errorf("%w: player_name", ErrMissingField)
	}
	action := e.Action
	if action == "" {
		action = "unknown"
	}
	return ScoredEvent{
		ID:         e.ID,
		OccurredAt: e.OccurredAt,
		PlayerID:   e.PlayerID,
		PlayerName: e.PlayerName,
		Points:     e.Points,
		Action:     action,
		GameID:     e.GameID,
	}, nil
}

// AsJoined converts the envelope into its joined variant.
func (e Event) AsJoined() (JoinedEvent, error) {
	if e.PlayerID == "" {
		return JoinedEvent{}, fmt.Errorf("%w: player_id", ErrMissingField)
	}
	if e.PlayerName == "" {
		return JoinedEvent{}, fmt.Errorf("%w: player_name", ErrMissingField)
	}
	if e.GameID == "" {
		return JoinedEvent{}, fmt.Errorf("%w: game_id", ErrMissingField)
	}
	return JoinedEvent{
		ID:         e.ID,
		OccurredAt: e.OccurredAt,
		PlayerID:   e.PlayerID,
		PlayerName: e.PlayerName,
		GameID:     e.GameID,
	}, nil
}

// AsAchievement converts the envelope into its achievement variant.
func (e Event) AsAchievement() (AchievementEvent, error) {
	if e.PlayerName == "" {
		return AchievementEvent{}, fmt.Errorf("%w: player_name", ErrMissingField)
	}
	if e.AchievementName == "" {
		return AchievementEvent{}, fmt.Errorf("%w: achievement_name", ErrMissingField)
	}
	if e.AchievementRarity == "" {
		return AchievementEvent{}, fmt.Errorf("%w: achievement_rarity", ErrMissingField)
	}
	return AchievementEvent{
		ID:         e.ID,
		OccurredAt: e.OccurredAt,
		PlayerName: e.PlayerName,
		Name:       e.AchievementName,
		Rarity:     e.AchievementRarity,
	}, nil
}

// RouteStatus classifies the outcome of routing a single event.
type RouteStatus string

const (
	// RouteApplied means a handler completed all of its mutations.
	RouteApplied RouteStatus = "applied"
	// RouteInvalid means the payload failed envelope validation or did
	// not decode. Permanently skipped.
	RouteInvalid RouteStatus = "invalid"
	// RouteUnknownKind means the kind maps to no handler. Permanently
	// skipped.
	RouteUnknownKind RouteStatus = "unknown_kind"
	// RouteHandlerError means a handler hit a data-shape failure.
	// Permanently skipped, recorded for operator review.
	RouteHandlerError RouteStatus = "handler_error"
	// RouteStoreError means the aggregate store was unreachable. The
	// event is NOT skipped; the batch is held uncommitted and retried.
	RouteStoreError RouteStatus = "store_error"
)

// RouteResult is the outcome of pushing one event through the router.
type RouteResult struct {
	Status  RouteStatus
	EventID string
	Kind    EventKind
	Reason  string
	Err     error
}

// Permanent reports whether the result is a terminal skip decision as
// opposed to a transient infrastructure failure.
func (r RouteResult) Permanent() bool {
	return r.Status == RouteInvalid || r.Status == RouteUnknownKind || r.Status == RouteHandlerError
}
