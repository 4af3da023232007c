// Package scheduler hands deferred session closures to the closure worker.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"youthsessions/internal/platform/kafka/producer"
	"youthsessions/internal/sessions/metrics"
)

// DefaultTopic carries closure jobs.
const DefaultTopic = "sessions.closure-jobs"

const jobTypeHeader = "job_type"

// JobTypeClosure identifies closure jobs on the topic.
const JobTypeClosure = "session_closure"

// ClosureJob asks the worker to close sessions a counsellor saw as awaiting closure.
type ClosureJob struct {
	JobID       string    `json:"job_id"`
	SessionIDs  []string  `json:"session_ids"`
	StructureID string    `json:"structure_id"`
	ObservedAt  time.Time `json:"observed_at"`
}

// Decode parses a job payload.
func Decode(payload []byte) (ClosureJob, error) {
	var job ClosureJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return ClosureJob{}, fmt.Errorf("decode closure job: %w", err)
	}
	if job.StructureID == "" {
		return ClosureJob{}, fmt.Errorf("decode closure job: missing structure id")
	}
	return job, nil
}

// Publisher is satisfied by producer.Producer.
type Publisher interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaScheduler publishes closure jobs keyed by structure so a structure's
// jobs stay ordered on one partition.
type KafkaScheduler struct {
	publisher Publisher
	topic     string
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*KafkaScheduler)

func WithTopic(topic string) Option {
	return func(s *KafkaScheduler) {
		if topic != "" {
			s.topic = topic
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *KafkaScheduler) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *KafkaScheduler) {
		s.logger = logger
	}
}

func NewKafka(publisher Publisher, opts ...Option) (*KafkaScheduler, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	s := &KafkaScheduler{
		publisher: publisher,
		topic:     DefaultTopic,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *KafkaScheduler) ScheduleClosure(ctx context.Context, sessionIDs []string, structureID string, observedAt time.Time) error {
	if len(sessionIDs) == 0 {
		return nil
	}
	jobID := uuid.NewString()
	payload, err := json.Marshal(ClosureJob{
		JobID:       jobID,
		SessionIDs:  sessionIDs,
		StructureID: structureID,
		ObservedAt:  observedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode closure job: %w", err)
	}
	err = s.publisher.Produce(ctx, &producer.Message{
		Topic:   s.topic,
		Key:     []byte(structureID),
		Value:   payload,
		Headers: map[string]string{jobTypeHeader: JobTypeClosure},
	})
	if err != nil {
		return fmt.Errorf("publish closure job: %w", err)
	}
	s.metrics.IncrementClosuresScheduled()
	s.logger.InfoContext(ctx, "closure job scheduled",
		"job_id", jobID,
		"structure_id", structureID,
		"sessions", len(sessionIDs),
	)
	return nil
}

// LoggingScheduler records closure requests without dispatching them. It is used
// when no broker is configured.
type LoggingScheduler struct {
	logger *slog.Logger
}

func NewLogging(logger *slog.Logger) *LoggingScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingScheduler{logger: logger}
}

func (s *LoggingScheduler) ScheduleClosure(ctx context.Context, sessionIDs []string, structureID string, observedAt time.Time) error {
	s.logger.InfoContext(ctx, "closure job not dispatched, no broker configured",
		"structure_id", structureID,
		"session_ids", sessionIDs,
		"observed_at", observedAt,
	)
	return nil
}
