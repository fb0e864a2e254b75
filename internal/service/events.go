package service

import (
	"sync"
	"time"

	"github.com/repopulse/repopulse/internal/store"
)

type EventType string

const (
	EventScheduleCreated   EventType = "schedule:created"
	EventScheduleUpdated   EventType = "schedule:updated"
	EventScheduleDeleted   EventType = "schedule:deleted"
	EventScheduleExecuting EventType = "schedule:executing"
	EventScheduleCompleted EventType = "schedule:completed"
	EventScheduleFailed    EventType = "schedule:failed"
)

// EventTypes lists every lifecycle event the scheduler emits.
var EventTypes = []EventType{
	EventScheduleCreated,
	EventScheduleUpdated,
	EventScheduleDeleted,
	EventScheduleExecuting,
	EventScheduleCompleted,
	EventScheduleFailed,
}

// Event is a snapshot of a schedule lifecycle transition. Handlers receive a
// copy and must not rely on the schedule row staying unchanged.
type Event struct {
	Type           EventType
	Schedule       store.Schedule
	ItemsProcessed int64
	Err            string
	OccurredAt     time.Time
}

type EventHandler func(Event)

// Events is a synchronous callback registry. Publish fans out to handlers in
// subscription order on the caller's goroutine.
type Events struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

func NewEvents() *Events {
	return &Events{handlers: make(map[EventType][]EventHandler)}
}

func (e *Events) Subscribe(t EventType, h EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[t] = append(e.handlers[t], h)
}

func (e *Events) Publish(ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	e.mu.RLock()
	handlers := e.handlers[ev.Type]
	e.mu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
}
