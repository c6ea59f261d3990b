package workers

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSummaryStream = "summary:stream"
	DefaultSummaryGroup  = "summary-workers"
)

// SummaryGenerator is implemented by services.ResultService.
type SummaryGenerator interface {
	Generate(ctx context.Context, sessionID, userID string) error
}

// SummaryQueue appends summary jobs to a Redis stream.
type SummaryQueue struct {
	Redis  *redis.Client
	Stream string
	MaxLen int64
}

func NewSummaryQueue(rdb *redis.Client, stream string) *SummaryQueue {
	if stream == "" {
		stream = DefaultSummaryStream
	}
	return &SummaryQueue{Redis: rdb, Stream: stream, MaxLen: 10000}
}

func (q *SummaryQueue) Enqueue(ctx context.Context, sessionID, userID string) error {
	if sessionID == "" {
		return errors.New("summary job needs a session_id")
	}
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: q.Stream,
		MaxLen: q.MaxLen,
		Approx: true,
		Values: map[string]any{
			"session_id":  sessionID,
			"user_id":     userID,
			"enqueued_at": strconv.FormatInt(time.Now().Unix(), 10),
		},
	}).Err()
}

// SummaryWorkerPool consumes summary jobs with a Redis consumer group.
// Jobs are acknowledged after one attempt; failures are recorded on the
// session and retried on request.
type SummaryWorkerPool struct {
	Redis      *redis.Client
	Generator  SummaryGenerator
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
	JobTimeout     time.Duration

	wg sync.WaitGroup
}

func (p *SummaryWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Generator == nil {
		return errors.New("SummaryWorkerPool missing dependency: Redis/Generator must be set")
	}
	if p.Stream == "" {
		p.Stream = DefaultSummaryStream
	}
	if p.Group == "" {
		p.Group = DefaultSummaryGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.JobTimeout <= 0 {
		p.JobTimeout = 90 * time.Second
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		p.wg.Add(1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

// Wait blocks until every consumer has returned after ctx is done.
func (p *SummaryWorkerPool) Wait() { p.wg.Wait() }

func (p *SummaryWorkerPool) runConsumer(ctx context.Context, consumer string) {
	defer p.wg.Done()
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
			Count:    5,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("summary stream read failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(context.WithoutCancel(ctx), p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

type summaryJob struct {
	SessionID string
	UserID    string
}

func parseJob(msg redis.XMessage) (summaryJob, bool) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}
	job := summaryJob{SessionID: getStr("session_id"), UserID: getStr("user_id")}
	return job, job.SessionID != "" && job.UserID != ""
}

func (p *SummaryWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	job, ok := parseJob(msg)
	if !ok {
		p.Logger.WithField("redis_id", msg.ID).Warn("malformed summary job dropped")
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":   msg.ID,
		"session_id": job.SessionID,
	})

	// a job in flight finishes even when shutdown starts
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.JobTimeout)
	defer cancel()

	start := time.Now()
	if err := p.Generator.Generate(jctx, job.SessionID, job.UserID); err != nil {
		log.WithError(err).Error("summary job failed")
		return
	}
	log.WithField("elapsed_ms", time.Since(start).Milliseconds()).Info("summary job done")
}
