package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBus fans events out over Redis Pub/Sub. Subscribers (the WS handler,
// possibly other API instances) listen on the per-interview channel; a
// disconnected subscriber simply misses the event.
type RedisBus struct {
	rdb *redis.Client
	log *logrus.Logger
}

func NewRedisBus(rdb *redis.Client, log *logrus.Logger) *RedisBus {
	return &RedisBus{rdb: rdb, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, interviewID string, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.log.WithError(err).WithField("event", ev.Type).Error("event marshal failed")
		return
	}
	if err := b.rdb.Publish(ctx, Channel(interviewID), payload).Err(); err != nil {
		b.log.WithError(err).WithFields(logrus.Fields{
			"interview_id": interviewID,
			"event":        ev.Type,
		}).Warn("event publish failed")
	}
}
