// Command notify-worker consumes reservation events from the notification
// queue and delivers customer messages. Delivery here is a structured log
// line; swapping in a real mail provider only touches the emailer.
package main

import (
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/pedalpost/rental-api/internal/config"
	"github.com/pedalpost/rental-api/internal/notify"
)

func main() {
	logger := log.Default()

	cfg, err := config.Load(logger)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatalf("connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("open channel: %v", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(cfg.NotifyQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("declare queue %s: %v", cfg.NotifyQueue, err)
	}

	msgs, err := ch.Consume(cfg.NotifyQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("register consumer: %v", err)
	}

	log.Printf("notify worker listening on queue %s", cfg.NotifyQueue)

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		for d := range msgs {
			handleDelivery(logger, &d)
		}
	}()

	<-stopCh
	log.Printf("shutdown signal received, stopping worker")
	time.Sleep(500 * time.Millisecond)
	log.Printf("worker stopped")
}

func handleDelivery(logger *log.Logger, d *amqp.Delivery) {
	// Ack unconditionally: a malformed or unknown event would fail the
	// same way on every redelivery.
	defer func() {
		if err := d.Ack(false); err != nil {
			logger.Printf("WARN: ack: %v", err)
		}
	}()

	var evt notify.Event
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		logger.Printf("WARN: invalid event payload: %v", err)
		return
	}

	switch evt.Type {
	case notify.EventHoldCreated:
		logger.Printf("EMAIL hold-created ref=%s reservation=%s held at %s",
			evt.ShortRef, evt.ReservationID, evt.OccurredAt.Format(time.RFC3339))
	case notify.EventPaymentConfirmed:
		logger.Printf("EMAIL payment-confirmed ref=%s reservation=%s paid at %s",
			evt.ShortRef, evt.ReservationID, evt.OccurredAt.Format(time.RFC3339))
	case notify.EventReservationCancelled:
		logger.Printf("EMAIL reservation-cancelled ref=%s reservation=%s cancelled at %s",
			evt.ShortRef, evt.ReservationID, evt.OccurredAt.Format(time.RFC3339))
	default:
		logger.Printf("WARN: unknown event type %q", evt.Type)
	}
}
