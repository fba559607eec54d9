package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ReportQueueName is the durable queue carrying buffered dispense reports.
const ReportQueueName = "dispense_reports"

// QueuedReport is one buffered completion report on the wire. Replaying it is
// a brand-new dispense attempt with its own ledger record; the ID only tags
// the message for logging.
type QueuedReport struct {
	ID string `json:"id"`
	DispenseRequest
}

// ReportQueue publishes buffered dispense reports for the worker to replay.
type ReportQueue struct {
	conn *amqp.Connection
}

// NewReportQueue creates the publisher.
func NewReportQueue(conn *amqp.Connection) *ReportQueue {
	return &ReportQueue{conn: conn}
}

// Publish enqueues one report and returns its message ID.
func (q *ReportQueue) Publish(ctx context.Context, req DispenseRequest) (string, error) {
	ch, err := q.conn.Channel()
	if err != nil {
		GetMonitor().RecordMQError()
		return "", err
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(ReportQueueName, true, false, false, false, nil); err != nil {
		GetMonitor().RecordMQError()
		return "", err
	}

	msg := QueuedReport{ID: uuid.NewString(), DispenseRequest: req}
	body, err := json.Marshal(&msg)
	if err != nil {
		return "", err
	}

	err = ch.PublishWithContext(
		ctx,
		"",
		ReportQueueName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   msg.ID,
			Body:        body,
		},
	)
	if err != nil {
		GetMonitor().RecordMQError()
		return "", err
	}
	return msg.ID, nil
}
