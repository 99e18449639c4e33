// Package services содержит почтового воркера: потребление событий
// движка из очереди и отправка писем по SMTP.
package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/creatorhub-kr/entitlement-engine/internal/lib/sl"
	libsmtp "github.com/creatorhub-kr/entitlement-engine/internal/lib/smtp"
	"github.com/creatorhub-kr/entitlement-engine/internal/models"
)

// SenderService отправляет почтовые уведомления.
type SenderService struct {
	transport libsmtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport libsmtp.TransportInterface, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendEntitlementEvent отправляет письмо по событию движка
// (регистрация, оплата, триал, риворд).
func (s *SenderService) SendEntitlementEvent(body []byte) error {
	var event models.NotificationEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject := event.Subject
	if subject == "" {
		subject = "알림"
	}
	bodyText := event.Body
	if bodyText == "" {
		bodyText = fmt.Sprintf("%s님, 계정 상태가 변경되었습니다.", event.Nickname)
	}
	return s.sendEmail([]string{event.Email}, subject, bodyText)
}

// SendInfoExpiringSubscription отправляет письмо о подписке,
// истекающей завтра.
func (s *SenderService) SendInfoExpiringSubscription(body []byte) error {
	var message models.ExpiringSubscription
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject := "구독 만료 예정 안내"
	bodyText := fmt.Sprintf("%s님, %s 플랜 구독이 %s에 만료됩니다.\n미리 갱신해 주세요.",
		message.Nickname, message.Plan.Info().Name, message.ExpiresAt.Format("2006-01-02"))
	return s.sendEmail([]string{message.Email}, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.From(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.From()); err != nil {
		s.log.Error("failed to set MAIL FROM", sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", "recipient", addr, sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return err
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}
	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent", "to", to)
	return nil
}
