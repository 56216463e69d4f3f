package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ledger/internal/domain"
	"ledger/internal/domain/event"
	"ledger/internal/util"
)

// Publisher stages events inside the caller's transaction.
type Publisher interface {
	PublishTx(ctx context.Context, querier domain.Querier, evt event.Event) error
}

type MessageWriter interface {
	CreateMessageTx(ctx context.Context, querier domain.Querier, msg *domain.OutboxMessage) error
}

type OutboxPublisher struct {
	repo MessageWriter
	now  func() time.Time
}

func NewPublisher(repo MessageWriter) *OutboxPublisher {
	return &OutboxPublisher{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (p *OutboxPublisher) PublishTx(ctx context.Context, querier domain.Querier, evt event.Event) error {
	msg, err := p.newMessage(evt)
	if err != nil {
		return err
	}
	if err := p.repo.CreateMessageTx(ctx, querier, msg); err != nil {
		return fmt.Errorf("failed to stage %s event: %w", evt.EventType(), err)
	}
	return nil
}

func (p *OutboxPublisher) newMessage(evt event.Event) (*domain.OutboxMessage, error) {
	id, err := util.GenerateUUID()
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", evt.EventType(), err)
	}
	occurredAt := p.now()
	envelope, err := json.Marshal(event.Envelope{
		ID:         id,
		Type:       evt.EventType(),
		OccurredAt: occurredAt,
		Payload:    payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s envelope: %w", evt.EventType(), err)
	}
	return &domain.OutboxMessage{
		ID:            id,
		AggregateType: evt.AggregateType(),
		AggregateID:   evt.AggregateID(),
		MessageType:   evt.EventType(),
		Key:           evt.PartitionKey(),
		Payload:       envelope,
		Status:        domain.OutboxStatusPending,
		CreatedAt:     occurredAt,
	}, nil
}

// NopPublisher drops events; used when event publication is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishTx(context.Context, domain.Querier, event.Event) error { return nil }
