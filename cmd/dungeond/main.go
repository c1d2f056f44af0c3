package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"shadow-dungeon/engine/dungeon"
	"shadow-dungeon/engine/logging"
	"shadow-dungeon/engine/logging/sinks"
	"shadow-dungeon/engine/stats"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func main() {
	var (
		addr       = flag.String("addr", ":8080", "listen address")
		configPath = flag.String("config", "", "path to an engine config JSON file")
		eventsPath = flag.String("events", "", "path to an NDJSON event log file")
		manaMax    = flag.Float64("mana-max", 500, "user mana pool capacity")
		manaRegen  = flag.Float64("mana-regen", 5, "mana regenerated per second")
	)
	flag.Parse()

	cfg := dungeon.DefaultConfig()
	if *configPath != "" {
		loaded, err := dungeon.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	}

	hub := newHub(nil, demoRoster())

	named := []logging.NamedSink{
		{Name: "console", Sink: sinks.NewConsole(os.Stdout)},
		{Name: "hub", Sink: hubSink{hub: hub}},
	}
	logCfg := logging.DefaultConfig()
	if *eventsPath != "" {
		file, err := os.OpenFile(*eventsPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("events log: %v", err)
		}
		defer file.Close()
		named = append(named, logging.NamedSink{Name: "json", Sink: sinks.NewJSON(file, logCfg.JSON.FlushInterval)})
	}
	router := logging.NewRouter(nil, logCfg, named)

	registry := dungeon.NewRegistry(dungeon.Deps{
		Config:    cfg,
		User:      demoUser(),
		Publisher: router,
		Store:     dungeon.NewMemoryCollectibleStore(),
		Mana:      dungeon.NewRegeneratingManaPool(*manaMax, *manaRegen),
		Rewards:   logRewardSink{},
	})
	hub.registry = registry

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWS(hub, w, r)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/telemetry", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"engine": registry.Telemetry(),
			"events": router.Stats(),
		})
	})
	mux.HandleFunc("/encounters", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, registry.Snapshots())
	})

	server := &http.Server{Addr: *addr, Handler: mux}
	stop := make(chan struct{})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Printf("dungeond listening on %s", *addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		hub.RunSnapshots(stop)
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		close(stop)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
		if err := registry.Shutdown(shutdownCtx); err != nil {
			log.Printf("engine shutdown: %v", err)
		}
		return router.Close(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("dungeond: %v", err)
	}
}

func serveWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	conn.SetReadLimit(maxInboundMessage)

	id, sub := hub.Subscribe(conn)
	defer hub.Disconnect(id)

	if err := sub.send(outboundMessage{
		Type:       "snapshot",
		Encounters: hub.registry.Snapshots(),
		ServerTime: time.Now().UnixMilli(),
	}); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd commandMessage
		if err := json.Unmarshal(data, &cmd); err != nil {
			sub.send(commandResult{Type: "result", Error: "malformed command"})
			continue
		}
		result := hub.HandleCommand(r.Context(), cmd)
		if err := sub.send(result); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func parseRankOrDefault(value string) (stats.Rank, error) {
	if strings.TrimSpace(value) == "" {
		return stats.RankE, nil
	}
	rank, ok := stats.ParseRank(value)
	if !ok {
		return stats.RankE, fmt.Errorf("unknown rank %q", value)
	}
	return rank, nil
}

// demoUser matches the reference hunter the tuning defaults were
// calibrated against.
func demoUser() dungeon.UserContext {
	return dungeon.UserContext{
		ID:   uuid.NewString(),
		Rank: stats.RankA,
		Stats: stats.UserStats{
			Strength:     693,
			Agility:      320,
			Intelligence: 600,
			Perception:   181,
			Vitality:     410,
			Luck:         90,
		},
	}
}

func demoRoster() []dungeon.ShadowSummary {
	ranks := []stats.Rank{stats.RankB, stats.RankB, stats.RankC, stats.RankC, stats.RankD}
	profiles := []stats.BehaviorProfile{
		stats.ProfileAggressive,
		stats.ProfileBalanced,
		stats.ProfileTactical,
		stats.ProfileBalanced,
		stats.ProfileBalanced,
	}
	roster := make([]dungeon.ShadowSummary, 0, len(ranks))
	for i, rank := range ranks {
		roster = append(roster, dungeon.ShadowSummary{
			ID:      uuid.NewString(),
			Rank:    rank,
			Profile: profiles[i],
		})
	}
	return roster
}

// logRewardSink reports grants to the process log; a real host would
// persist them against the user account.
type logRewardSink struct{}

func (logRewardSink) GrantRewards(encounterID string, grant dungeon.RewardGrant) {
	log.Printf("rewards for encounter %s: userXP=%d rosterShare=%d combatTimeMs=%d",
		encounterID, grant.UserXP, grant.RosterXPShare, grant.CombatTimeCreditMs)
}
