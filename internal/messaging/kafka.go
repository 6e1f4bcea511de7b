package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/config"
)

const fetchRetryDelay = time.Second

// kafkaClient publishes to and consumes from a single topic.
type kafkaClient struct {
	writer *kafka.Writer
	reader *kafka.Reader
	topic  string
	logger *zap.Logger
}

func newKafkaClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	kc := cfg.Messaging.Kafka
	klog := kafkaLogger{logger: logger}

	client := &kafkaClient{
		topic:  kc.Topic,
		logger: logger,
		// messages are keyed by order id; hashing keeps one order's events
		// on one partition and therefore in order.
		writer: &kafka.Writer{
			Addr:         kafka.TCP(kc.Brokers...),
			Topic:        kc.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Logger:       klog,
			ErrorLogger:  klog,
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        kc.Brokers,
			GroupID:        cfg.Messaging.ConsumerGroup,
			Topic:          kc.Topic,
			MinBytes:       kc.MinBytes,
			MaxBytes:       kc.MaxBytes,
			CommitInterval: kc.CommitInterval,
			Dialer: &kafka.Dialer{
				Timeout:  kc.ConnectTimeout,
				ClientID: kc.ClientID,
			},
		}),
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Info("closing kafka client")
			return errors.Join(client.writer.Close(), client.reader.Close())
		},
	})
	return client, nil
}

func (k *kafkaClient) Publish(ctx context.Context, key []byte, value []byte, headers map[string]string) error {
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:     key,
		Value:   value,
		Headers: kafkaHeaders(headers),
	})
}

// Consume feeds messages to handler until ctx ends. A message whose handler
// fails is logged and skipped: the reader has already moved past it and the
// next commit covers its offset, so it is not redelivered.
func (k *kafkaClient) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return err
			}
			k.logger.Error("kafka fetch failed", zap.Error(err))
			select {
			case <-time.After(fetchRetryDelay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		deliver(ctx, k.logger, handler, msg)
		if err := k.reader.CommitMessages(ctx, msg); err != nil {
			k.logger.Warn("commit failed", zap.Error(err), zap.Int64("offset", msg.Offset))
		}
	}
}

// deliver hands msg to handler and reports whether it succeeded. Failures are
// logged with their position and otherwise dropped.
func deliver(ctx context.Context, logger *zap.Logger, handler Handler, msg kafka.Message) bool {
	err := handler(ctx, fromKafka(msg))
	if err == nil {
		return true
	}
	logger.Error("message handler failed; skipping",
		zap.Error(err),
		zap.String("topic", msg.Topic),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)
	return false
}

func (k *kafkaClient) Topic() string { return k.topic }

func fromKafka(msg kafka.Message) Message {
	return Message{
		Topic:   msg.Topic,
		Key:     append([]byte(nil), msg.Key...),
		Value:   append([]byte(nil), msg.Value...),
		Headers: headerMap(msg.Headers),
		Offset:  msg.Offset,
		Time:    msg.Time,
	}
}

func kafkaHeaders(headers map[string]string) []kafka.Header {
	if len(headers) == 0 {
		return nil
	}
	out := make([]kafka.Header, 0, len(headers))
	for name, value := range headers {
		out = append(out, kafka.Header{Key: name, Value: []byte(value)})
	}
	return out
}

func headerMap(headers []kafka.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[h.Key] = string(h.Value)
	}
	return m
}

// kafkaLogger routes kafka-go's internal logging to zap at debug level.
type kafkaLogger struct {
	logger *zap.Logger
}

func (k kafkaLogger) Printf(msg string, args ...any) {
	k.logger.Sugar().Debugf(msg, args...)
}
