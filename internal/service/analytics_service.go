package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"sarathi-be/internal/dto"
	"sarathi-be/internal/entity"
	"sarathi-be/internal/repository/contract"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IAnalyticsService interface {
	Consume(ctx context.Context) error
}

// analyticsService drains turn-processed events off the in-process bus
// and persists them as turn log rows, keeping analytics writes out of
// the request path.
type analyticsService struct {
	pubSub      *gochannel.GoChannel
	topicName   string
	turnLogRepo contract.TurnLogRepository
}

func NewAnalyticsService(
	pubSub *gochannel.GoChannel,
	topicName string,
	turnLogRepo contract.TurnLogRepository,
) IAnalyticsService {
	return &analyticsService{
		pubSub:      pubSub,
		topicName:   topicName,
		turnLogRepo: turnLogRepo,
	}
}

func (as *analyticsService) Consume(ctx context.Context) error {
	messages, err := as.pubSub.Subscribe(ctx, as.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			as.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (as *analyticsService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.TurnProcessedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal turn processed message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	raw := map[string]interface{}{
		"citations":          payload.Citations,
		"signals_collected":  payload.SignalsCollected,
		"retrieval_degraded": payload.RetrievalDegraded,
		"rerank_degraded":    payload.RerankDegraded,
	}

	turnLog := &entity.TurnLog{
		Id:           uuid.New(),
		SessionId:    payload.SessionId,
		Phase:        payload.Phase,
		GuidanceType: payload.GuidanceType,
		TurnCount:    payload.TurnCount,
		Payload:      raw,
		CreatedAt:    time.Now().UTC(),
	}

	if err := as.turnLogRepo.Create(ctx, turnLog); err != nil {
		log.Printf("[ERROR] Failed to persist turn log for session %s: %v", payload.SessionId, err)
		msg.Nack() // Nack for retriable errors
		return
	}

	msg.Ack()
}
