package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/careerforge/backend/internal/cache"
	"github.com/careerforge/backend/internal/models"
	pgrepo "github.com/careerforge/backend/internal/repositories/postgres"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultOutcomeStream = "interview:outcomes"

// OutcomeQueue pushes completed-interview outcomes onto the Redis stream
// consumed by the worker pool. It satisfies services.OutcomeEnqueuer.
type OutcomeQueue struct {
	Redis  *redis.Client
	Stream string
}

func NewOutcomeQueue(rdb *redis.Client) *OutcomeQueue {
	return &OutcomeQueue{Redis: rdb, Stream: defaultOutcomeStream}
}

func (q *OutcomeQueue) Enqueue(ctx context.Context, o *models.InterviewOutcome) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: q.Stream,
		Values: map[string]any{
			"interview_id": o.InterviewID,
			"outcome":      string(payload),
			"ts_unix":      strconv.FormatInt(time.Now().UTC().Unix(), 10),
		},
	}).Err()
}

// OutcomeWorkerPool drains the outcome stream into the Postgres read model.
// Upserts are keyed on interview_id, so redelivery after a crash-before-ack
// is harmless.
type OutcomeWorkerPool struct {
	Redis    *redis.Client
	Outcomes pgrepo.OutcomeRepo
	Cache    cache.Cache // summary invalidation, optional

	NumWorkers int
	Logger     *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *OutcomeWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Outcomes == nil {
		return errors.New("OutcomeWorkerPool missing dependency: Redis/Outcomes must be set")
	}
	if p.Stream == "" {
		p.Stream = defaultOutcomeStream
	}
	if p.Group == "" {
		p.Group = "outcome-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *OutcomeWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				if p.handleMsg(ctx, msg) {
					_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
				}
			}
		}
	}
}

// handleMsg reports whether the message should be acked. A transient
// Postgres failure leaves it pending for redelivery.
func (p *OutcomeWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) bool {
	raw, _ := msg.Values["outcome"].(string)
	if raw == "" {
		return true // malformed, nothing to retry
	}

	var outcome models.InterviewOutcome
	if err := json.Unmarshal([]byte(raw), &outcome); err != nil {
		p.Logger.WithError(err).WithField("redis_id", msg.ID).Warn("outcome decode failed")
		return true
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":     msg.ID,
		"interview_id": outcome.InterviewID,
	})

	if err := p.Outcomes.Upsert(ctx, &outcome); err != nil {
		log.WithError(err).Error("outcome upsert failed")
		return false
	}

	if p.Cache != nil {
		_ = p.Cache.Del(ctx, "analytics:placement:summary")
	}

	log.WithFields(logrus.Fields{
		"total_score": outcome.TotalScore,
		"grade":       outcome.Grade,
	}).Info("outcome recorded")
	return true
}
