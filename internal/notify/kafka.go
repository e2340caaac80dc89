package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

// KafkaSink publishes events as JSON to a topic, keyed by order so one
// order's notifications stay ordered within a partition.
type KafkaSink struct {
	w messageWriter
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{w: &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkaGo.Hash{},
		AllowAutoTopicCreation: true,
	}}
}

func (k *KafkaSink) Deliver(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	key := ev.Kind
	if ev.OrderID != 0 {
		key = strconv.FormatInt(ev.OrderID, 10)
	}
	return k.w.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafkaGo.Header{
			{Key: "kind", Value: []byte(ev.Kind)},
			{Key: "severity", Value: []byte(ev.Severity)},
		},
	})
}

func (k *KafkaSink) Close() error { return k.w.Close() }

// LogSink writes events to the structured log; used when no broker is configured.
type LogSink struct{ logger *zap.Logger }

func NewLogSink(logger *zap.Logger) LogSink { return LogSink{logger: logger} }

func (l LogSink) Deliver(_ context.Context, ev Event) error {
	l.logger.Info("notification",
		zap.String("kind", ev.Kind),
		zap.String("severity", string(ev.Severity)),
		zap.Int64("recipient_account_id", ev.Recipient.AccountID),
		zap.String("recipient_email", ev.Recipient.Email),
		zap.Int64("order_id", ev.OrderID),
		zap.String("order_number", ev.OrderNumber),
		zap.String("message", ev.Message))
	return nil
}
