// Package events publishes interview events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/dmalikzadeh/ai-interview/internal/observability"
)

const (
	TypeTurn         = "turn"
	TypeSessionEnded = "session_ended"
	TypeSummary      = "summary"
)

// Publisher writes turn events and session lifecycle events to separate topics.
type Publisher struct {
	writerTurns    *kafka.Writer
	writerSessions *kafka.Writer
	principal      string
	topicTurns     string
	topicSessions  string
	enabled        bool
	metrics        *observability.Metrics
	log            *logrus.Entry
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers       []string
	TopicTurns    string
	TopicSessions string
	Principal     string
	Enabled       bool
}

// TurnEvent is published for every appended conversation turn.
type TurnEvent struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Index     int       `json:"index"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Score     *int      `json:"score,omitempty"`
	Closing   bool      `json:"closing,omitempty"`
	At        time.Time `json:"at"`
}

// SessionEvent is published when a session ends or its summary settles.
type SessionEvent struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason,omitempty"`
	Turns     int       `json:"turns,omitempty"`
	Status    string    `json:"status,omitempty"`
	At        time.Time `json:"at"`
}

// New creates a publisher; without brokers it runs in log-only mode.
func New(cfg *Config, log *logrus.Logger) *Publisher {
	if log == nil {
		log = logrus.New()
	}
	entry := log.WithField("component", "kafka_publisher")
	m := observability.DefaultMetrics

	if cfg == nil {
		entry.Info("Kafka disabled (nil config), using log-only mode")
		return &Publisher{enabled: false, metrics: m, log: entry}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		entry.Info("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:     cfg.Principal,
			topicTurns:    cfg.TopicTurns,
			topicSessions: cfg.TopicSessions,
			enabled:       false,
			metrics:       m,
			log:           entry,
		}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	entry.WithFields(logrus.Fields{
		"brokers":        cfg.Brokers,
		"topic_turns":    cfg.TopicTurns,
		"topic_sessions": cfg.TopicSessions,
		"principal":      cfg.Principal,
	}).Info("Kafka publisher initialized")

	return &Publisher{
		writerTurns:    newWriter(cfg.TopicTurns),
		writerSessions: newWriter(cfg.TopicSessions),
		principal:      cfg.Principal,
		topicTurns:     cfg.TopicTurns,
		topicSessions:  cfg.TopicSessions,
		enabled:        true,
		metrics:        m,
		log:            entry,
	}
}

// PublishTurn keys by session so one session's turns stay ordered.
func (p *Publisher) PublishTurn(ctx context.Context, ev TurnEvent) error {
	return p.publish(ctx, p.writerTurns, p.topicTurns, TypeTurn, ev.SessionID, ev)
}

func (p *Publisher) PublishSession(ctx context.Context, ev SessionEvent) error {
	return p.publish(ctx, p.writerSessions, p.topicSessions, ev.Type, ev.SessionID, ev)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		p.log.WithError(err).WithField("topic", topic).Error("failed to marshal event")
		return err
	}

	p.log.WithFields(logrus.Fields{
		"topic":      topic,
		"key":        key,
		"event_type": eventType,
	}).Debug("publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{"topic": topic, "key": key}).Error("failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTurns != nil {
		if e := p.writerTurns.Close(); e != nil {
			p.log.WithError(e).Error("error closing turns writer")
			err = e
		}
	}
	if p.writerSessions != nil {
		if e := p.writerSessions.Close(); e != nil {
			p.log.WithError(e).Error("error closing sessions writer")
			err = e
		}
	}
	return err
}
