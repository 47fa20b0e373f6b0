package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/safar/go-travel-store/internal/config"
)

// Auditor consumes domain events and writes one audit line per event.
type Auditor struct {
	cfg    config.EventsConfig
	logger *zap.Logger
}

func NewAuditor(cfg config.EventsConfig, logger *zap.Logger) *Auditor {
	return &Auditor{cfg: cfg, logger: logger}
}

// Run blocks until ctx is cancelled, reconnecting to the broker as needed.
func (a *Auditor) Run(ctx context.Context) error {
	switch a.cfg.Broker {
	case "rabbitmq", "amqp":
		return a.runAMQP(ctx)
	case "kafka":
		return a.runKafka(ctx)
	}
	return fmt.Errorf("audit consumer needs EVENTS_BROKER=rabbitmq or kafka, got %q", a.cfg.Broker)
}

func (a *Auditor) runAMQP(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(a.cfg.RabbitMQURL)
		if err != nil {
			a.logger.Warn("Failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = a.consumeAMQP(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		a.logger.Warn("Consume loop ended, reconnecting", zap.Error(err))
		time.Sleep(2 * time.Second)
	}
}

func (a *Auditor) consumeAMQP(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		a.logger.Warn("Failed to set QoS", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(a.cfg.Topic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.ConsumeWithContext(ctx, a.cfg.Topic, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := a.handle(d.Body); err != nil {
			a.logger.Error("Failed to handle event", zap.Error(err))
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (a *Auditor) runKafka(ctx context.Context) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: a.cfg.KafkaBrokers,
		Topic:   a.cfg.Topic,
		GroupID: "events-audit",
	})
	defer reader.Close()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}
		if err := a.handle(msg.Value); err != nil {
			a.logger.Error("Failed to handle event",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}
		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			a.logger.Warn("Failed to commit offset", zap.Error(err))
		}
	}
}

func (a *Auditor) handle(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line, err := FormatLine(ev)
	if err != nil {
		return err
	}
	a.logger.Info(line,
		zap.String("event_id", ev.ID),
		zap.String("type", ev.Type))
	return nil
}

// FormatLine renders ev as "[ts] type | k=v | k=v" with payload keys sorted.
func FormatLine(ev Event) (string, error) {
	var payload map[string]any
	if len(ev.Payload) > 0 {
		dec := json.NewDecoder(bytes.NewReader(ev.Payload))
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil {
			return "", fmt.Errorf("unmarshal payload: %w", err)
		}
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", ev.Timestamp.UTC().Format(time.RFC3339), ev.Type)
	for _, k := range keys {
		fmt.Fprintf(&b, " | %s=%v", k, payload[k])
	}
	return b.String(), nil
}
