package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ChangeEvent is published whenever an appointment row changes, so cached
// views can refresh without polling the database.
type ChangeEvent struct {
	ClinicID      uuid.UUID `json:"clinic_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Feed publishes appointment change events for one process and lets another
// subscribe to them.
type Feed interface {
	Publish(ctx context.Context, ev ChangeEvent) error
	Subscribe(ctx context.Context, clinicID uuid.UUID) (<-chan ChangeEvent, error)
}

type redisFeed struct {
	client     *redis.Client
	channelFmt string
	logger     *zap.Logger
}

// NewRedisFeed creates a pub/sub backed change feed. channelFmt must contain
// a single %s verb for the clinic id.
func NewRedisFeed(client *redis.Client, channelFmt string, logger *zap.Logger) Feed {
	return &redisFeed{
		client:     client,
		channelFmt: channelFmt,
		logger:     logger,
	}
}

func (f *redisFeed) channel(clinicID uuid.UUID) string {
	return fmt.Sprintf(f.channelFmt, clinicID.String())
}

func (f *redisFeed) Publish(ctx context.Context, ev ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel(ev.ClinicID), data).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

func (f *redisFeed) Subscribe(ctx context.Context, clinicID uuid.UUID) (<-chan ChangeEvent, error) {
	sub := f.client.Subscribe(ctx, f.channel(clinicID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe change feed: %w", err)
	}

	out := make(chan ChangeEvent, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var ev ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					f.logger.Warn("dropping malformed change event", zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// NoopFeed swallows events. Used in tests.
type NoopFeed struct{}

func (NoopFeed) Publish(context.Context, ChangeEvent) error { return nil }

func (NoopFeed) Subscribe(context.Context, uuid.UUID) (<-chan ChangeEvent, error) {
	ch := make(chan ChangeEvent)
	close(ch)
	return ch, nil
}
