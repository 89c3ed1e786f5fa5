package audit

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/relabs-tech/tablegate/core"
	"github.com/relabs-tech/tablegate/core/logger"
)

// the message header carrying the operation
const operationHeader = "operation"

// messageWriter is the part of kafka.Writer the notifier needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes mutation events to a Kafka topic
type KafkaNotifier struct {
	writer messageWriter
}

// NewKafkaNotifier returns a notifier which writes asynchronously to topic.
// Delivery failures are logged, they never fail the request.
func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are missing")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is missing")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Default().WithError(err).Errorf("Error 5750: cannot deliver %d mutation event(s) to kafka", len(messages))
			}
		},
	}
	return &KafkaNotifier{writer: writer}, nil
}

// Notify implements core.Notifier
func (k *KafkaNotifier) Notify(ctx context.Context, table string, operation core.Operation, payload []byte) {
	err := k.writer.WriteMessages(context.WithoutCancel(ctx), kafka.Message{
		Key:     []byte(table),
		Value:   payload,
		Headers: []kafka.Header{{Key: operationHeader, Value: []byte(operation)}},
		Time:    time.Now(),
	})
	if err != nil {
		logger.FromContext(ctx).WithError(err).Errorf("Error 5751: cannot publish mutation event for table %s", table)
	}
}

// Close flushes pending events and closes the writer
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
