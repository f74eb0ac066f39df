package server

import (
	"context"
	"sync"
	"time"

	"github.com/jclarke67/voice-canvas-scribe/internal/notes"
)

const (
	RealtimeEventNotification = "notification"
	RealtimeEventNotesChanged = "notes-change"
	realtimeEventHeartbeat    = "heartbeat"
	realtimeSourceBackend     = "voice-canvas"
)

// RealtimeMessage is one event delivered to stream subscribers.
type RealtimeMessage struct {
	EventType string
	Kind      string
	Message   string
	NoteIDs   []string
	Timestamp time.Time
}

// RealtimeDispatcher fans messages out to every active subscriber. Slow subscribers drop
// messages once their buffer is full.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
	clock       func() time.Time
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[int64]*realtimeSubscriber),
		bufferSize:  16,
		clock:       time.Now,
	}
}

// Subscribe registers a subscriber until ctx is done or the returned cleanup is called.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context) (<-chan RealtimeMessage, func()) {
	subscriber := &realtimeSubscriber{
		id:     d.nextSequence(),
		stream: make(chan RealtimeMessage, d.bufferSize),
	}
	d.registerSubscriber(subscriber)
	var once sync.Once
	cleanup := func() {
		once.Do(func() { d.unregisterSubscriber(subscriber.id) })
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.EventType == "" {
		return
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = d.clock().UTC()
	}
	d.mu.RLock()
	if len(d.subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*realtimeSubscriber, 0, len(d.subscribers))
	for _, subscriber := range d.subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// Notify publishes a repository notification to every subscriber.
func (d *RealtimeDispatcher) Notify(kind notes.NotificationKind, message string) {
	d.Publish(RealtimeMessage{
		EventType: RealtimeEventNotification,
		Kind:      string(kind),
		Message:   message,
	})
}

// NotesChanged publishes the identifiers of notes touched by a request.
func (d *RealtimeDispatcher) NotesChanged(noteIDs ...string) {
	d.Publish(RealtimeMessage{
		EventType: RealtimeEventNotesChanged,
		NoteIDs:   noteIDs,
	})
}

// SubscriberCount reports the number of active subscribers.
func (d *RealtimeDispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

func (d *RealtimeDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *RealtimeDispatcher) registerSubscriber(subscriber *realtimeSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[subscriber.id] = subscriber
}

func (d *RealtimeDispatcher) unregisterSubscriber(subscriberID int64) {
	d.mu.Lock()
	delete(d.subscribers, subscriberID)
	d.mu.Unlock()
}
