//go:build integration

package consumer_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"youthsessions/internal/platform/kafka/consumer"
	"youthsessions/internal/platform/kafka/producer"
	"youthsessions/pkg/testutil/containers"
)

type ConsumerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestConsumerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ConsumerIntegrationSuite))
}

func (s *ConsumerIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())
	prod, err := producer.New(producer.Config{Brokers: s.kafka.Brokers, Retries: 3}, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ConsumerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		_ = s.producer.Close()
	}
}

type recordingHandler struct {
	mu       sync.Mutex
	messages []*consumer.Message
	fail     func(*consumer.Message) error
}

func (h *recordingHandler) Handle(_ context.Context, msg *consumer.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail != nil {
		if err := h.fail(msg); err != nil {
			return err
		}
	}
	h.messages = append(h.messages, msg)
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// running is a consumer loop that stop() cancels and waits for.
type running struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *ConsumerIntegrationSuite) start(groupID, topic string, h consumer.Handler) *running {
	cons, err := consumer.New(consumer.Config{
		Brokers:         s.kafka.Brokers,
		GroupID:         groupID,
		Topics:          []string{topic},
		AutoOffsetReset: "earliest",
	}, h, nil)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	r := &running{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		cons.Run(ctx)
	}()
	return r
}

func (s *ConsumerIntegrationSuite) stop(r *running) {
	r.cancel()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		s.Fail("consumer did not stop")
	}
}

func (s *ConsumerIntegrationSuite) TestDeliversMessagesWithHeaders() {
	ctx := context.Background()
	topic := "consumer-delivers"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1))

	for range 3 {
		s.Require().NoError(s.producer.Produce(ctx, &producer.Message{
			Topic:   topic,
			Key:     []byte("S1"),
			Value:   []byte("job"),
			Headers: map[string]string{"job_type": "session_closure"},
		}))
	}

	h := &recordingHandler{}
	cons := s.start("consumer-delivers-group", topic, h)
	s.Eventually(func() bool { return h.count() >= 3 }, 15*time.Second, 100*time.Millisecond)
	s.stop(cons)

	s.Equal("session_closure", h.messages[0].Headers["job_type"])
	s.Equal("S1", string(h.messages[0].Key))
}

func (s *ConsumerIntegrationSuite) TestFailedMessageIsRedeliveredToNextMember() {
	ctx := context.Background()
	topic := "consumer-redelivery"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1))
	s.Require().NoError(s.producer.Produce(ctx, &producer.Message{Topic: topic, Key: []byte("S1"), Value: []byte("job")}))

	groupID := "consumer-redelivery-" + time.Now().Format("20060102150405")

	var attempts atomic.Int32
	failing := &recordingHandler{fail: func(*consumer.Message) error {
		attempts.Add(1)
		return errors.New("store unavailable")
	}}
	first := s.start(groupID, topic, failing)
	s.Eventually(func() bool { return attempts.Load() >= 1 }, 15*time.Second, 100*time.Millisecond)
	s.stop(first)

	succeeding := &recordingHandler{}
	second := s.start(groupID, topic, succeeding)
	s.Eventually(func() bool { return succeeding.count() >= 1 }, 15*time.Second, 100*time.Millisecond)
	s.stop(second)
}

func (s *ConsumerIntegrationSuite) TestNewValidatesConfig() {
	topics := []string{"t"}
	_, err := consumer.New(consumer.Config{GroupID: "g", Topics: topics}, &recordingHandler{}, nil)
	s.Error(err)
	_, err = consumer.New(consumer.Config{Brokers: s.kafka.Brokers, Topics: topics}, &recordingHandler{}, nil)
	s.Error(err)
	_, err = consumer.New(consumer.Config{Brokers: s.kafka.Brokers, GroupID: "g"}, &recordingHandler{}, nil)
	s.Error(err)
	_, err = consumer.New(consumer.Config{Brokers: s.kafka.Brokers, GroupID: "g", Topics: topics}, nil, nil)
	s.Error(err)
}
