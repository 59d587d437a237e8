package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/errs"
	"freestylecal/internal/ports"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier writes each notice to a topic, keyed by source so one
// source's notices stay ordered within a partition.
type KafkaNotifier struct {
	writer messageWriter
}

var _ ports.Notifier = (*KafkaNotifier)(nil)

func NewKafka(ctx context.Context, brokers []string, topic string) (*KafkaNotifier, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("kafka topic is required")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "notify.kafka")),
		"kafka writer ready",
		slog.String("brokers", strings.Join(brokers, ",")),
		slog.String("topic", topic),
	)
	return &KafkaNotifier{writer: writer}, nil
}

func (n *KafkaNotifier) Notify(ctx context.Context, notice ports.RunNotice) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	payload, err := json.Marshal(notice)
	if err != nil {
		return errs.Wrap(err, "encode run notice")
	}
	if err := n.writer.WriteMessages(ctx, kafka.Message{Key: []byte(notice.Source), Value: payload}); err != nil {
		return errs.Wrap(err, "write kafka message")
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return errs.Wrap(n.writer.Close(), "close kafka writer")
}

// Fanout delivers a notice to every notifier and joins their errors.
type Fanout []ports.Notifier

var _ ports.Notifier = Fanout(nil)

func (f Fanout) Notify(ctx context.Context, notice ports.RunNotice) error {
	var joined error
	for _, n := range f {
		joined = errors.Join(joined, n.Notify(ctx, notice))
	}
	return joined
}
