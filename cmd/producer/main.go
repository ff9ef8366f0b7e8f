package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	kafkaadapter "github.com/jdonosob/gaming-stream-project/internal/adapter/kafka"
	"github.com/jdonosob/gaming-stream-project/internal/domain"
	"github.com/jdonosob/gaming-stream-project/internal/pkg/logger"
)

// Synthetic roster and event tables. In a real deployment the game
// servers publish these events; this generator only exists to exercise
// the pipeline.
type player struct {
	id   string
	name string
}

var players = []player{
	{"player_001", "NightHawk"},
	{"player_002", "ShadowBlade"},
	{"player_003", "PhoenixRise"},
	{"player_004", "ThunderStrike"},
	{"player_005", "IceQueen"},
	{"player_006", "DragonSlayer"},
	{"player_007", "StormChaser"},
	{"player_008", "NeonNinja"},
	{"player_009", "CyberWolf"},
	{"player_010", "GhostRider"},
}

var games = []string{"game_alpha", "game_beta", "game_gamma"}

type scoringAction struct {
	action string
	points int64
}

var scoringActions = []scoringAction{
	{"kill", 100},
	{"headshot", 150},
	{"assist", 50},
	{"objective_capture", 200},
	{"flag_carry", 75},
	{"healing", 25},
	{"revive", 80},
}

type achievement struct {
	name   string
	rarity string
}

var achievements = []achievement{
	{"First Blood", "common"},
	{"Double Kill", "common"},
	{"Triple Kill", "uncommon"},
	{"Unstoppable", "rare"},
	{"Godlike", "epic"},
	{"Ace", "legendary"},
}

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Comma-separated Kafka brokers")
	topic := flag.String("topic", "game-events", "Topic to publish game events to")
	eps := flag.Float64("eps", 5, "Events per second")
	duration := flag.Duration("d", 0, "How long to run (0 = forever)")
	dupPercent := flag.Int("dup-pct", 5, "Percentage of events re-sent with the same id to exercise dedup")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	log := logger.New(*logLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	producer := kafkaadapter.NewProducer(strings.Split(*brokers, ","), *topic, log)
	defer producer.Close()

	log.Info("game event producer started", "topic", *topic, "eps", *eps, "dup_pct", *dupPercent)

	limiter := rate.NewLimiter(rate.Limit(*eps), 1)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var sent, duplicates int64
	for {
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		event := randomEvent(rng)
		if err := producer.Publish(ctx, event); err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Error("failed to publish event", "event_id", event.ID, "error", err)
			continue
		}
		sent++
		log.Debug("published event", "event_id", event.ID, "kind", event.Kind, "player", event.PlayerName)

		// Occasionally resend the very same event (same id) so the
		// downstream dedup path gets exercised under realistic traffic.
		if rng.Intn(100) < *dupPercent {
			if err := producer.Publish(ctx, event); err == nil {
				duplicates++
			}
		}
	}

	log.Info("producer stopped", "events_sent", sent, "duplicates_sent", duplicates)
	_ = os.Stdout.Sync()
}

func randomEvent(rng *rand.Rand) domain.Event {
	p := players[rng.Intn(len(players))]
	event := domain.Event{
		ID:         uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		PlayerID:   p.id,
		PlayerName: p.name,
	}

	// Weighted mix: scoring dominates, joins are occasional,
	// achievements are rare.
	switch roll := rng.Intn(100); {
	case roll < 70:
		sa := scoringActions[rng.Intn(len(scoringActions))]
		event.Kind = domain.KindPlayerScored
		event.Points = sa.points
		event.Action = sa.action
		event.GameID = games[rng.Intn(len(games))]
	case roll < 90:
		event.Kind = domain.KindPlayerJoined
		event.GameID = games[rng.Intn(len(games))]
	default:
		a := achievements[rng.Intn(len(achievements))]
		event.Kind = domain.KindAchievementUnlocked
		event.AchievementName = a.name
		event.AchievementRarity = a.rarity
	}
	return event
}
