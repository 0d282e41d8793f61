// Package services формирует и отправляет письма по событиям бронирования.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/carpool/internal/lib/smtp"
	"github.com/magabrotheeeer/carpool/internal/models"
)

// Формат даты отправления в тексте письма.
const departureLayout = "02.01.2006 15:04 MST"

// SenderService отправляет письма пассажирам.
type SenderService struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtp.TransportInterface, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// Handle разбирает событие из очереди и отправляет письмо получателю.
// Сигнатура совпадает с rabbitmq.Handler.
func (s *SenderService) Handle(ctx context.Context, body []byte) error {
	const op = "sender.Handle"
	var event models.ReservationEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%s: unmarshal event: %w", op, err)
	}
	if event.Email == "" {
		return fmt.Errorf("%s: event %q has no recipient", op, event.Kind)
	}

	subject, text, err := Render(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	to := []string{event.Email}
	msg := smtp.Compose(s.transport.Sender(), to, subject, text)
	if err := smtp.Send(ctx, s.transport, to, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("email sent", slog.String("kind", event.Kind), slog.Int64("trip_id", event.TripID))
	return nil
}

// Render возвращает тему и текст письма для события.
func Render(e models.ReservationEvent) (string, string, error) {
	route := fmt.Sprintf("%s → %s", e.StartingPoint, e.EndingPoint)
	departure := e.StartingAt.In(time.UTC).Format(departureLayout)

	switch e.Kind {
	case models.EventReservationConfirmed:
		return "Бронирование подтверждено",
			fmt.Sprintf("Здравствуйте, %s!\n\nВы забронировали место в поездке %s.\nОтправление: %s.\nСтоимость: %d.\n\nХорошей дороги!",
				e.FirstName, route, departure, e.Price), nil
	case models.EventReservationCancelled:
		return "Бронирование отменено",
			fmt.Sprintf("Здравствуйте, %s!\n\nВаше бронирование в поездке %s (отправление %s) отменено.",
				e.FirstName, route, departure), nil
	case models.EventTripReminder:
		return "Напоминание о поездке",
			fmt.Sprintf("Здравствуйте, %s!\n\nНапоминаем, что поездка %s отправляется %s.\n\nНе опаздывайте!",
				e.FirstName, route, departure), nil
	default:
		return "", "", fmt.Errorf("unknown event kind %q", e.Kind)
	}
}
