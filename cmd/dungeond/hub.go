package main

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"shadow-dungeon/engine/dungeon"
	"shadow-dungeon/engine/logging"
)

const (
	writeWait         = 10 * time.Second
	snapshotInterval  = 2 * time.Second
	maxInboundMessage = 4096
)

// Hub fans engine events and periodic snapshots out to every connected
// host and feeds inbound commands into the registry.
type Hub struct {
	mu          sync.Mutex
	subscribers map[uint64]*subscriber
	nextID      atomic.Uint64

	registry *dungeon.EncounterRegistry
	roster   []dungeon.ShadowSummary
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newHub(registry *dungeon.EncounterRegistry, roster []dungeon.ShadowSummary) *Hub {
	return &Hub{
		subscribers: make(map[uint64]*subscriber),
		registry:    registry,
		roster:      roster,
	}
}

type outboundMessage struct {
	Type       string                      `json:"type"`
	Event      *logging.Event              `json:"event,omitempty"`
	Encounters []dungeon.EncounterSnapshot `json:"encounters,omitempty"`
	ServerTime int64                       `json:"serverTime"`
}

type commandMessage struct {
	Type          string `json:"type"`
	Rank          string `json:"rank"`
	EncounterID   string `json:"encounterId"`
	Participating bool   `json:"participating"`
}

type commandResult struct {
	Type        string  `json:"type"`
	Command     string  `json:"command"`
	EncounterID string  `json:"encounterId,omitempty"`
	OK          bool    `json:"ok"`
	Error       string  `json:"error,omitempty"`
	Chance      float64 `json:"chance,omitempty"`
	Extracted   bool    `json:"extracted,omitempty"`
}

// Subscribe registers a connection and returns its id for later removal.
// The subscriber guards the connection's write side, shared between
// broadcasts and command replies.
func (h *Hub) Subscribe(conn *websocket.Conn) (uint64, *subscriber) {
	id := h.nextID.Add(1)
	sub := &subscriber{conn: conn}
	h.mu.Lock()
	h.subscribers[id] = sub
	h.mu.Unlock()
	return id, sub
}

func (s *subscriber) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Hub) Disconnect(id uint64) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	delete(h.subscribers, id)
	h.mu.Unlock()
	if ok {
		sub.conn.Close()
	}
}

func (h *Hub) broadcast(msg outboundMessage) {
	msg.ServerTime = time.Now().UnixMilli()
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal outbound message: %v", err)
		return
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := sub.conn.WriteMessage(websocket.TextMessage, data)
		sub.mu.Unlock()
		if err != nil {
			log.Printf("failed to write to subscriber: %v", err)
		}
	}
}

// RunSnapshots pushes the live encounter list on a fixed cadence until
// stop closes.
func (h *Hub) RunSnapshots(stop <-chan struct{}) {
	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.broadcast(outboundMessage{Type: "snapshot", Encounters: h.registry.Snapshots()})
		}
	}
}

// HandleCommand executes one inbound host command and returns the reply
// to send back on the issuing connection.
func (h *Hub) HandleCommand(ctx context.Context, cmd commandMessage) commandResult {
	result := commandResult{Type: "result", Command: cmd.Type}
	switch cmd.Type {
	case "spawn":
		rank, err := parseRankOrDefault(cmd.Rank)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		encounter, err := h.registry.Spawn(rank, h.roster, cmd.Participating)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.OK = true
		result.EncounterID = encounter.ID
	case "participation":
		h.registry.SetParticipating(cmd.Participating)
		result.OK = true
	case "stop":
		if err := h.registry.Stop(cmd.EncounterID); err != nil {
			result.Error = err.Error()
			result.EncounterID = cmd.EncounterID
			return result
		}
		result.OK = true
		result.EncounterID = cmd.EncounterID
	case "bossExtract":
		encounter, err := h.registry.Get(cmd.EncounterID)
		if err != nil {
			result.Error = err.Error()
			result.EncounterID = cmd.EncounterID
			return result
		}
		extracted, chance, err := encounter.AttemptBossExtraction(ctx)
		if err != nil {
			result.Error = err.Error()
			result.EncounterID = cmd.EncounterID
			return result
		}
		result.OK = true
		result.EncounterID = cmd.EncounterID
		result.Extracted = extracted
		result.Chance = chance
	default:
		result.Error = "unknown command"
	}
	return result
}

// hubSink adapts the hub to the logging pipeline so every engine event
// reaches connected hosts as it happens.
type hubSink struct {
	hub *Hub
}

func (s hubSink) Write(event logging.Event) error {
	s.hub.broadcast(outboundMessage{Type: "event", Event: &event})
	return nil
}

func (s hubSink) Close(context.Context) error {
	return nil
}
