// Package services содержит планировщик уведомлений: периодический
// обход базы в поисках истекающих подписок и пробных периодов
// с публикацией событий в очередь почтового воркера.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/creatorhub-kr/entitlement-engine/internal/lib/rabbitmq"
	"github.com/creatorhub-kr/entitlement-engine/internal/lib/sl"
	"github.com/creatorhub-kr/entitlement-engine/internal/models"
	"github.com/streadway/amqp"
)

// ExpiryRepository описывает выборки планировщика.
type ExpiryRepository interface {
	// FindSubscriptionsExpiringTomorrow возвращает подписки, истекающие завтра.
	FindSubscriptionsExpiringTomorrow(ctx context.Context) ([]*models.ExpiringSubscription, error)

	// FindTrialsExpiringToday возвращает аккаунты с истекающим сегодня триалом.
	FindTrialsExpiringToday(ctx context.Context) ([]*models.Account, error)
}

// SchedulerService периодически публикует события об истечении.
type SchedulerService struct {
	repo ExpiryRepository
	log  *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo ExpiryRepository, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo: repo,
		log:  log,
	}
}

// RunExpiringSubscriptions раз в 12 часов ищет подписки, истекающие
// завтра, и публикует их в очередь уведомлений.
func (s *SchedulerService) RunExpiringSubscriptions(ctx context.Context, channel *amqp.Channel) {
	s.publishExpiringSubscriptions(ctx, channel)

	ticker := time.NewTicker(12 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishExpiringSubscriptions(ctx, channel)
		}
	}
}

func (s *SchedulerService) publishExpiringSubscriptions(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("looking for subscriptions expiring tomorrow")
	expiring, err := s.repo.FindSubscriptionsExpiringTomorrow(ctx)
	if err != nil {
		s.log.Error("failed to find expiring subscriptions", sl.Err(err))
		return
	}
	if len(expiring) == 0 {
		s.log.Info("no expiring subscriptions found")
		return
	}
	s.log.Info("found expiring subscriptions", "count", len(expiring))
	for _, sub := range expiring {
		if err := rabbitmq.PublishMessage(channel, rabbitmq.Exchange, "expiring", sub); err != nil {
			s.log.Error("failed to publish message", sl.Err(err))
		}
	}
}

// RunExpiringTrials раз в сутки ищет аккаунты, у которых сегодня
// кончается пробный период, и публикует уведомления.
func (s *SchedulerService) RunExpiringTrials(ctx context.Context, channel *amqp.Channel) {
	s.publishExpiringTrials(ctx, channel)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishExpiringTrials(ctx, channel)
		}
	}
}

func (s *SchedulerService) publishExpiringTrials(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("looking for trials expiring today")
	accounts, err := s.repo.FindTrialsExpiringToday(ctx)
	if err != nil {
		s.log.Error("failed to find expiring trials", sl.Err(err))
		return
	}
	if len(accounts) == 0 {
		s.log.Info("no expiring trials found")
		return
	}
	s.log.Info("found expiring trials", "count", len(accounts))
	for _, account := range accounts {
		event := models.NotificationEvent{
			Kind:     "trial_expiring",
			Email:    account.Email,
			Nickname: account.Nickname,
		}
		if err := rabbitmq.PublishMessage(channel, rabbitmq.Exchange, "entitlement", event); err != nil {
			s.log.Error("failed to publish message", sl.Err(err))
		}
	}
}
