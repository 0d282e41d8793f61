package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/carpool/internal/lib/sl"
)

const prefetch = 10

// Acknowledger часть amqp.Delivery, которой подтверждается обработка.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Handler обрабатывает тело одного сообщения.
type Handler func(ctx context.Context, body []byte) error

// Consume начинает читать очередь queueName и обрабатывать сообщения
// не более чем в prefetch горутинах. Возвращается сразу после подписки,
// чтение прекращается при отмене ctx или закрытии канала.
func Consume(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string, handler Handler) error {
	const op = "rabbitmq.Consume"
	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("queue", queueName))
	go func() {
		sem := make(chan struct{}, prefetch)
		for {
			select {
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					process(ctx, log, d, d.Redelivered, d.Body, handler)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// process вызывает handler и подтверждает сообщение. Неудачное сообщение
// возвращается в очередь один раз, при повторной неудаче отбрасывается.
func process(ctx context.Context, log *slog.Logger, ack Acknowledger, redelivered bool, body []byte, handler Handler) {
	if err := handler(ctx, body); err != nil {
		log.Warn("failed to handle message", sl.Err(err), slog.Bool("redelivered", redelivered))
		if nackErr := ack.Nack(false, !redelivered); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if err := ack.Ack(false); err != nil {
		log.Error("failed to ack message", sl.Err(err))
	}
}
