// The background consumer drains the datavue.audit queue into an
// append-only structured log file, giving operators a change trail that
// survives independently of the primary database.
package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// StartAuditConsumer connects to RabbitMQ, declares the datavue.audit
// queue (durable), and appends each event to the audit log at logPath
// as one JSON line. It runs a reconnect loop with capped exponential
// backoff and never returns under normal operation; malformed messages
// are rejected without requeue so a poison message cannot wedge the
// queue.
func StartAuditConsumer(logPath string) error {
	writer, err := auditWriter(logPath)
	if err != nil {
		return err
	}

	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, writer); err != nil {
			log.Printf("audit-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func auditWriter(logPath string) (zerolog.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return zerolog.Logger{}, fmt.Errorf("create audit log dir: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("open audit log: %w", err)
	}
	return zerolog.New(f).With().Timestamp().Logger(), nil
}

func consumeLoop(conn *amqp.Connection, writer zerolog.Logger) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(auditQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	deliveries, err := ch.Consume(auditQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for d := range deliveries {
		var ev AuditEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			log.Printf("audit-consumer: dropping malformed message: %v", err)
			_ = d.Reject(false)
			continue
		}
		writer.Info().
			Str("event_id", ev.ID).
			Str("kind", ev.Kind).
			Int64("user_id", ev.UserID).
			Int64("data_type_id", ev.DataTypeID).
			Int64("record_id", ev.RecordID).
			Str("detail", ev.Detail).
			Str("occurred_at", ev.OccurredAt).
			Msg("audit")
		_ = d.Ack(false)
	}
	return fmt.Errorf("delivery channel closed")
}
