package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/example/fueldispenser/internal/config"
	"github.com/example/fueldispenser/internal/infra/mq"
	applog "github.com/example/fueldispenser/internal/log"
	"github.com/example/fueldispenser/internal/repository/mysql"
	"github.com/example/fueldispenser/internal/service"
)

func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applog.Init(false)
	defer func() { _ = zap.L().Sync() }()

	db := mysql.Init(&cfg.MySQL)
	mqConn := mq.Init(&cfg.RabbitMQ)

	engine := service.NewTransactionService(
		mysql.NewAccountRepository(db),
		mysql.NewTransactionRepository(db),
	)

	ch, err := mqConn.Channel()
	if err != nil {
		zap.L().Fatal("failed to open channel", zap.Error(err))
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(service.ReportQueueName, true, false, false, false, nil); err != nil {
		zap.L().Fatal("failed to declare queue", zap.Error(err))
	}

	// Manual ack: a report is only dropped once its outcome is in the ledger.
	msgs, err := ch.Consume(service.ReportQueueName, "", false, false, false, false, nil)
	if err != nil {
		zap.L().Fatal("failed to consume", zap.Error(err))
	}

	zap.L().Info("dispense worker started", zap.String("queue", service.ReportQueueName))

	for d := range msgs {
		var m service.QueuedReport
		if err := json.Unmarshal(d.Body, &m); err != nil {
			zap.L().Warn("invalid report message", zap.Error(err))
			_ = d.Nack(false, false)
			continue
		}
		handleReport(context.Background(), engine, &m, d)
	}
}

// handleReport replays one buffered report as a normal dispense attempt.
// Rejections (bad payload, unknown tag, short balance) are final: the engine
// has already written the FAILED record where one is due, so the message is
// acked. Only storage failures go back on the queue.
func handleReport(ctx context.Context, engine *service.TransactionService, m *service.QueuedReport, d amqp.Delivery) {
	res, err := engine.Dispense(ctx, m.DispenseRequest)
	if err != nil {
		if permanent(err) {
			zap.L().Info("report rejected",
				zap.String("id", m.ID),
				zap.String("rfid_uid", m.RFID),
				zap.Error(err))
			service.GetMonitor().RecordWorkerProcessed()
			_ = d.Ack(false)
			return
		}
		zap.L().Error("report processing failed, requeueing",
			zap.String("id", m.ID),
			zap.Error(err))
		service.GetMonitor().RecordDBError()
		service.GetMonitor().RecordWorkerFailed()
		_ = d.Nack(false, true)
		return
	}

	zap.L().Info("report applied",
		zap.String("id", m.ID),
		zap.String("rfid_uid", m.RFID),
		zap.Int64("amount", res.Transaction.Amount),
		zap.Int64("balance_after", res.BalanceAfter))
	service.GetMonitor().RecordWorkerProcessed()
	_ = d.Ack(false)
}

func permanent(err error) bool {
	var insufficient *service.InsufficientBalanceError
	return errors.Is(err, service.ErrInvalidIdentity) ||
		errors.Is(err, service.ErrInvalidAmount) ||
		errors.Is(err, service.ErrInvalidVolume) ||
		errors.Is(err, service.ErrAccountNotFound) ||
		errors.As(err, &insufficient)
}
