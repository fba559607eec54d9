package mq

import (
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/fueldispenser/internal/config"
)

var (
	conn *amqp.Connection
	once sync.Once
)

// Init opens the shared RabbitMQ connection carrying the buffered dispense
// reports. Publisher and worker each declare the durable queue themselves, so
// nothing is declared here.
func Init(cfg *config.RabbitMQConfig) *amqp.Connection {
	once.Do(func() {
		c, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.Fatalf("failed to connect rabbitmq at %s: %v", cfg.URL, err)
		}
		conn = c
	})
	return conn
}

// Conn returns the shared connection.
func Conn() *amqp.Connection {
	return conn
}
