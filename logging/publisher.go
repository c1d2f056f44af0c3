package logging

import (
	"context"
	"time"
)

// EventType names one semantic engine event, e.g. "lifecycle.encounter_spawned".
type EventType string

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// EntityKind identifies what an EntityRef points at.
type EntityKind string

const (
	EntityKindUnknown   EntityKind = "unknown"
	EntityKindEncounter EntityKind = "encounter"
	EntityKindHostile   EntityKind = "hostile"
	EntityKindBoss      EntityKind = "boss"
	EntityKindShadow    EntityKind = "shadow"
	EntityKindUser      EntityKind = "user"
	EntityKindSystem    EntityKind = "system"
)

// EntityRef is a lightweight pointer to an engine entity.
type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

const (
	CategoryCombat     = "combat"
	CategoryExtraction = "extraction"
	CategoryEconomy    = "economy"
	CategoryLifecycle  = "lifecycle"
	CategorySystem     = "system"
)

// Event is the single structured record emitted to collaborators. The host
// overlay renders from these; the engine itself never draws anything.
type Event struct {
	Type        EventType      `json:"type"`
	EncounterID string         `json:"encounterId,omitempty"`
	Tick        uint64         `json:"tick"`
	Time        time.Time      `json:"time"`
	Actor       EntityRef      `json:"actor"`
	Targets     []EntityRef    `json:"targets,omitempty"`
	Severity    Severity       `json:"severity"`
	Category    string         `json:"category,omitempty"`
	Payload     any            `json:"payload,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// WithExtra returns the event with one extra field attached.
func (e Event) WithExtra(key string, value any) Event {
	if e.Extra == nil {
		e.Extra = make(map[string]any, 1)
	}
	e.Extra[key] = value
	return e
}

// Publisher accepts engine events. Implementations must be safe for
// concurrent use; encounters publish from independent goroutines.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

// NopPublisher returns a publisher that discards every event.
func NopPublisher() Publisher {
	return nopPublisher{}
}

type fieldPublisher struct {
	next   Publisher
	fields map[string]any
}

func (p *fieldPublisher) Publish(ctx context.Context, event Event) {
	if p.next == nil {
		return
	}
	if len(p.fields) > 0 {
		event = cloneEvent(event)
		if event.Extra == nil {
			event.Extra = make(map[string]any, len(p.fields))
		}
		for k, v := range p.fields {
			if _, exists := event.Extra[k]; !exists {
				event.Extra[k] = v
			}
		}
	}
	p.next.Publish(ctx, event)
}

// WithFields wraps a publisher so every event carries the given extra
// fields unless the event already set them.
func WithFields(p Publisher, fields map[string]any) Publisher {
	if p == nil {
		return NopPublisher()
	}
	if len(fields) == 0 {
		return p
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &fieldPublisher{next: p, fields: copied}
}

func cloneEvent(event Event) Event {
	cloned := event
	if len(event.Targets) > 0 {
		cloned.Targets = append([]EntityRef(nil), event.Targets...)
	}
	if event.Extra != nil {
		copied := make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			copied[k] = v
		}
		cloned.Extra = copied
	}
	return cloned
}
