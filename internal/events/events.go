package events

import (
	"context"
	"encoding/json"
	"errors"
	"surveys/internal/database"
	"surveys/internal/logger"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

const (
	TemplateChannel = "survey-templates"
	localBufferSize = 256
)

var ErrClosed = errors.New("event bus is closed")

type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Channel   string         `json:"channel,omitempty"`
	Action    string         `json:"action,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type Handler func(Event)

// EventBus fans events out to subscribers. With a cache client events travel
// through valkey pub/sub so every instance sees them; without one they are
// delivered in-process by a single dispatcher goroutine.
type EventBus struct {
	client     database.CacheClient
	log        logger.Logger
	mu         sync.RWMutex
	handlers   map[string][]Handler
	subscribed map[string]bool
	local      chan Event
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func New(client database.CacheClient) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	bus := &EventBus{
		client:     client,
		log:        logger.New("events"),
		handlers:   map[string][]Handler{},
		subscribed: map[string]bool{},
		ctx:        ctx,
		cancel:     cancel,
	}

	if client == nil {
		bus.local = make(chan Event, localBufferSize)
		bus.wg.Add(1)
		go bus.dispatchLocal()
	}

	return bus
}

func (b *EventBus) Subscribe(channel string, handler Handler) {
	b.mu.Lock()
	b.handlers[channel] = append(b.handlers[channel], handler)
	start := b.client != nil && !b.subscribed[channel]
	b.subscribed[channel] = true
	b.mu.Unlock()

	if start {
		b.wg.Add(1)
		go b.receive(channel)
	}
}

func (b *EventBus) Publish(ctx context.Context, channel string, event Event) error {
	log := b.log.Function("Publish")

	if b.ctx.Err() != nil {
		return ErrClosed
	}

	if event.Channel == "" {
		event.Channel = channel
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if b.client == nil {
		select {
		case b.local <- event:
		default:
			log.Warn("dropping event, dispatcher is full", "channel", channel, "type", event.Type)
		}
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return log.Err("failed to marshal event", err, "event", event)
	}

	cmd := b.client.B().Publish().Channel(channel).Message(string(payload)).Build()
	if err := b.client.Do(ctx, cmd).Error(); err != nil {
		return log.Err("failed to publish event", err, "channel", channel)
	}

	return nil
}

func (b *EventBus) Close() error {
	b.cancel()
	b.wg.Wait()
	return nil
}

func (b *EventBus) dispatch(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Channel]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

func (b *EventBus) dispatchLocal() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event := <-b.local:
			b.dispatch(event)
		}
	}
}

func (b *EventBus) receive(channel string) {
	defer b.wg.Done()
	log := b.log.Function("receive")

	err := b.client.Receive(
		b.ctx,
		b.client.B().Subscribe().Channel(channel).Build(),
		func(msg valkey.PubSubMessage) {
			var event Event
			if err := json.Unmarshal([]byte(msg.Message), &event); err != nil {
				log.Warn("discarding malformed event", "channel", msg.Channel, "error", err)
				return
			}
			if event.Channel == "" {
				event.Channel = msg.Channel
			}
			b.dispatch(event)
		},
	)
	if err != nil && b.ctx.Err() == nil {
		log.Er("subscription ended", err, "channel", channel)
	}
}
