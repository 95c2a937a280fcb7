package permkit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// CatalogChangeKind classifies what part of the catalog changed.
type CatalogChangeKind string

const (
	CatalogChangeRoles    CatalogChangeKind = "roles"
	CatalogChangeActions  CatalogChangeKind = "actions"
	CatalogChangeMappings CatalogChangeKind = "mappings"
)

// CatalogChangedEvent signals that role/action definitions or their mappings
// changed and cached resolutions must be rebuilt.
type CatalogChangedEvent struct {
	Kind CatalogChangeKind `json:"kind"`
	At   time.Time         `json:"at"`
}

// NewCatalogChangedEvent creates a CatalogChangedEvent stamped with now.
func NewCatalogChangedEvent(kind CatalogChangeKind) CatalogChangedEvent {
	return CatalogChangedEvent{Kind: kind, At: time.Now().UTC()}
}

// EventName implements Event.
func (CatalogChangedEvent) EventName() string {
	return "catalog.changed"
}

// AssignmentDelta records one effective assignment mutation applied to a
// resource's permission row.
type AssignmentDelta struct {
	Authority string `json:"authority"`
	OldRole   string `json:"old_role,omitempty"`
	NewRole   string `json:"new_role,omitempty"`
}

// InheritanceDelta records a parent/library inheritance mutation. ManagersOnly
// reports whether, after the change, only manager assignments flow down from
// the referenced source.
type InheritanceDelta struct {
	OldSource    string `json:"old_source,omitempty"`
	NewSource    string `json:"new_source,omitempty"`
	ManagersOnly bool   `json:"managers_only"`
}

// PermissionModelChangedEvent signals that a resource's permission model
// changed after a change-set application.
type PermissionModelChangedEvent struct {
	TargetID    string             `json:"target_id"`
	Assignments []AssignmentDelta  `json:"assignments,omitempty"`
	Inheritance []InheritanceDelta `json:"inheritance,omitempty"`
}

// EventName implements Event.
func (PermissionModelChangedEvent) EventName() string {
	return "permission_model.changed"
}

// PermissionsRestoredEvent signals that a resource's special permissions were
// stripped in favor of parent inheritance.
type PermissionsRestoredEvent struct {
	TargetID string `json:"target_id"`
}

// EventName implements Event.
func (PermissionsRestoredEvent) EventName() string {
	return "permissions.restored"
}

// NoopNotifier discards all events.
type NoopNotifier struct{}

// Publish implements ChangeNotifier.
func (NoopNotifier) Publish(context.Context, Event) {}

// InProcessNotifier fans events out to subscribers registered in the same
// process. Handlers run synchronously on the publishing goroutine and must
// not block.
type InProcessNotifier struct {
	mu       sync.RWMutex
	handlers []func(Event)
}

// NewInProcessNotifier creates an empty in-process notifier.
func NewInProcessNotifier() *InProcessNotifier {
	return &InProcessNotifier{}
}

// Subscribe registers a handler for all published events.
func (n *InProcessNotifier) Subscribe(handler func(Event)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers = append(n.handlers, handler)
}

// Publish implements ChangeNotifier.
func (n *InProcessNotifier) Publish(_ context.Context, event Event) {
	n.mu.RLock()
	handlers := append(make([]func(Event), 0, len(n.handlers)), n.handlers...)
	n.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// envelope is the wire format used by RedisNotifier.
type envelope struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// RedisNotifier broadcasts events over a Redis pub/sub channel so that every
// instance of the embedding application can invalidate its caches. Publishing
// is fire-and-forget: failures are logged, never returned.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	log     logrus.FieldLogger
}

// NewRedisNotifier creates a notifier publishing on the given channel.
func NewRedisNotifier(client *redis.Client, channel string, log logrus.FieldLogger) *RedisNotifier {
	if channel == "" {
		channel = "permkit:events"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisNotifier{
		client:  client,
		channel: channel,
		log:     log,
	}
}

// Publish implements ChangeNotifier.
func (n *RedisNotifier) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.log.WithError(err).WithField("event", event.EventName()).Warn("failed to encode event")
		return
	}
	body, err := json.Marshal(envelope{Name: event.EventName(), Payload: payload})
	if err != nil {
		n.log.WithError(err).WithField("event", event.EventName()).Warn("failed to encode event envelope")
		return
	}
	if err := n.client.Publish(ctx, n.channel, body).Err(); err != nil {
		n.log.WithError(err).WithField("event", event.EventName()).Warn("failed to publish event")
	}
}

// Listen consumes events from the channel until the context is canceled,
// invoking handler for each decoded event. Only event kinds published by
// permkit are forwarded; unknown names are skipped.
func (n *RedisNotifier) Listen(ctx context.Context, handler func(Event)) error {
	sub := n.client.Subscribe(ctx, n.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			event, err := decodeEvent([]byte(msg.Payload))
			if err != nil {
				n.log.WithError(err).Warn("failed to decode event")
				continue
			}
			if event != nil {
				handler(event)
			}
		}
	}
}

func decodeEvent(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}

	switch env.Name {
	case CatalogChangedEvent{}.EventName():
		var event CatalogChangedEvent
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	case PermissionModelChangedEvent{}.EventName():
		var event PermissionModelChangedEvent
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	case PermissionsRestoredEvent{}.EventName():
		var event PermissionsRestoredEvent
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	}
	return nil, nil
}
