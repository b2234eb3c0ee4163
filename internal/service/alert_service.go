package service

import (
	"context"
	"fmt"

	"sarathi-be/internal/pkg/logger"
	"sarathi-be/internal/pkg/mailer"
	"sarathi-be/pkg/events"
	appnats "sarathi-be/pkg/nats"
)

type IAlertService interface {
	Consume() error
}

// eventSubscriber is the slice of the NATS subscriber the alert
// consumer needs.
type eventSubscriber interface {
	Subscribe(subject string, durableName string, handler appnats.EventHandler) error
}

// alertService drains safety override events off the durable stream and
// notifies the ops inbox. Keeping the email here instead of the request
// path means a crisis alert survives a crash of the serving process.
type alertService struct {
	subscriber eventSubscriber
	mail       mailer.IEmailService
	logger     logger.ILogger
}

func NewAlertService(subscriber eventSubscriber, mail mailer.IEmailService, log logger.ILogger) IAlertService {
	return &alertService{
		subscriber: subscriber,
		mail:       mail,
		logger:     log,
	}
}

func (as *alertService) Consume() error {
	subject := fmt.Sprintf("events.%s", events.TypeSafetyOverride)
	return as.subscriber.Subscribe(subject, "safety-alerts", as.handleSafetyOverride)
}

func (as *alertService) handleSafetyOverride(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	sessionId, _ := payload["session_id"].(string)
	category, _ := payload["category"].(string)

	as.logger.Warn("alert_service", "safety override received", map[string]interface{}{
		"session_id": sessionId,
		"category":   category,
	})

	if as.mail == nil {
		return nil
	}

	// A failed send returns the error so the message is redelivered.
	if err := as.mail.SendSafetyAlert(sessionId, category); err != nil {
		as.logger.Error("alert_service", "failed to mail safety alert", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return err
	}
	return nil
}
