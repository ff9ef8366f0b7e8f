package domain

import (
	"errors"
	"testing"
	"time"
)

func TestEventActionable(t *testing.T) {
	cases := []struct {
		name  string
		event Event
		want  bool
	}{
		{"both present", Event{ID: "e1", Kind: KindPlayerScored}, true},
		{"missing id", Event{Kind: KindPlayerScored}, false},
		{"missing kind", Event{ID: "e1"}, false},
		{"empty", Event{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.event.Actionable(); got != tc.want {
				t.Errorf("Actionable() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAsScored(t *testing.T) {
	base := Event{
		ID:         "e1",
		Kind:       KindPlayerScored,
		OccurredAt: time.Now(),
		PlayerID:   "player_001",
		PlayerName: "NightHawk",
		Points:     100,
		Action:     "kill",
		GameID:     "game_alpha",
	}

	t.Run("valid", func(t *testing.T) {
		ev, err := base.AsScored()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ev.Points != 100 || ev.Action != "kill" || ev.PlayerName != "NightHawk" {
			t.Errorf("unexpected variant: %+v", ev)
		}
	})

	t.Run("missing action normalized", func(t *testing.T) {
		e := base
		e.Action = ""
		ev, err := e.AsScored()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ev.Action != "unknown" {
			t.Errorf("expected action %q, got %q", "unknown", ev.Action)
		}
	})

	t.Run("missing player id", func(t *testing.T) {
		e := base
		e.PlayerID = ""
		if _, err := e.AsScored(); !errors.Is(err, ErrMissingField) {
			t.Errorf("expected ErrMissingField, got %v", err)
		}
	})
}

func TestAsJoined(t *testing.T) {
	base := Event{
		ID:         "e2",
		Kind:       KindPlayerJoined,
		PlayerID:   "player_001",
		PlayerName: "NightHawk",
		GameID:     "game_beta",
	}

	if _, err := base.AsJoined(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	e := base
	e.GameID = ""
	if _, err := e.AsJoined(); !errors.Is(err, ErrMissingField) {
		t.Errorf("expected ErrMissingField for missing game_id, got %v", err)
	}
}

func TestAsAchievement(t *testing.T) {
	base := Event{
		ID:                "e3",
		Kind:              KindAchievementUnlocked,
		PlayerName:        "IceQueen",
		AchievementName:   "Godlike",
		AchievementRarity: "epic",
	}

	if _, err := base.AsAchievement(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	e := base
	e.AchievementRarity = ""
	if _, err := e.AsAchievement(); !errors.Is(err, ErrMissingField) {
		t.Errorf("expected ErrMissingField for missing rarity, got %v", err)
	}
}

func TestRouteResultPermanent(t *testing.T) {
	permanent := []RouteStatus{RouteInvalid, RouteUnknownKind, RouteHandlerError}
	for _, status := range permanent {
		if !(RouteResult{Status: status}).Permanent() {
			t.Errorf("expected %s to be permanent", status)
		}
	}
	for _, status := range []RouteStatus{RouteApplied, RouteStoreError} {
		if (RouteResult{Status: status}).Permanent() {
			t.Errorf("expected %s not to be permanent", status)
		}
	}
}
