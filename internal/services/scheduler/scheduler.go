// Package services периодически напоминает пассажирам о скором отправлении.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/models"
)

// ReminderRepository выбирает брони для напоминания и отмечает отправленные.
type ReminderRepository interface {
	DueReminders(ctx context.Context, now time.Time, horizon time.Duration) ([]models.ReservationInfo, error)
	MarkReminded(ctx context.Context, reservationID int64, at time.Time) error
}

// Publisher отправляет события в брокер сообщений.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// SchedulerService публикует напоминания trip.reminder.
type SchedulerService struct {
	repo      ReminderRepository
	publisher Publisher
	horizon   time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
// Напоминания отправляются для поездок, отправляющихся в ближайшие horizon.
func NewSchedulerService(repo ReminderRepository, publisher Publisher, horizon time.Duration, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:      repo,
		publisher: publisher,
		horizon:   horizon,
		now:       time.Now,
		log:       log,
	}
}

// Run выполняет RemindDeparting сразу и затем каждые interval до отмены ctx.
func (s *SchedulerService) Run(ctx context.Context, interval time.Duration) {
	s.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SchedulerService) runOnce(ctx context.Context) {
	sent, err := s.RemindDeparting(ctx)
	if err != nil {
		s.log.Error("reminder run failed", sl.Err(err))
		return
	}
	s.log.Info("reminder run finished", slog.Int("sent", sent))
}

// RemindDeparting публикует напоминание каждому пассажиру, чья поездка
// отправляется в ближайшие horizon, и возвращает число отправленных.
// Бронь, для которой публикация не удалась, останется в выборке следующего запуска.
func (s *SchedulerService) RemindDeparting(ctx context.Context) (int, error) {
	const op = "scheduler.RemindDeparting"
	now := s.now().UTC()
	due, err := s.repo.DueReminders(ctx, now, s.horizon)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(due) == 0 {
		s.log.Info("no departing trips to remind about")
		return 0, nil
	}
	s.log.Info("found reservations to remind", slog.Int("count", len(due)))

	sent := 0
	for _, r := range due {
		if err := ctx.Err(); err != nil {
			return sent, fmt.Errorf("%s: %w", op, err)
		}
		log := s.log.With(slog.Int64("reservation_id", r.ReservationID), slog.Int64("trip_id", r.Trip.ID))

		trip := r.Trip
		event := models.NewReservationEvent(models.EventTripReminder, r.Email, r.FirstName, &trip)
		if err := s.publisher.Publish(ctx, models.EventTripReminder, event); err != nil {
			log.Error("failed to publish reminder", sl.Err(err))
			continue
		}
		if err := s.repo.MarkReminded(ctx, r.ReservationID, now); err != nil {
			log.Error("failed to mark reservation as reminded", sl.Err(err))
			continue
		}
		sent++
	}
	return sent, nil
}
