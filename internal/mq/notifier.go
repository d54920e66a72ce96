package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// EventAttribute carries the event name on every published message.
	EventAttribute = "event"
	publishTimeout = 5 * time.Second
)

// Event is the body of an event message. Subscribers get the name only and
// read any state they need from the record store.
type Event struct {
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DecodeEvent parses the body of an event message.
func DecodeEvent(msg Message) (Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return Event{}, err
	}
	if event.Name == "" {
		event.Name = msg.Attributes[EventAttribute]
	}
	return event, nil
}

// Notifier publishes named events on one channel, fire-and-forget.
type Notifier struct {
	mq      *MQ
	channel string
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewNotifier(m *MQ, channel string, log logrus.FieldLogger) *Notifier {
	return &Notifier{mq: m, channel: channel, log: log, now: time.Now}
}

// Emit publishes event. Errors are logged and never returned; the publish
// is bounded by a timeout and outlives cancellation of ctx.
func (n *Notifier) Emit(ctx context.Context, event string) {
	log := n.log.WithField("event", event)

	data, err := json.Marshal(Event{Name: event, OccurredAt: n.now().UTC()})
	if err != nil {
		log.WithError(err).Error("Failed to encode event")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if _, err := n.mq.Publish(ctx, n.channel, data, map[string]string{EventAttribute: event}); err != nil {
		log.WithError(err).Warn("Failed to publish event")
		return
	}
	log.Debug("Event published")
}
