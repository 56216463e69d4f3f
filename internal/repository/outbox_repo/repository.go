package outbox_repo

import (
	"context"
	"database/sql"

	"ledger/internal/domain"
)

type OutboxRepository interface {
	CreateMessageTx(ctx context.Context, querier domain.Querier, msg *domain.OutboxMessage) error
	// GetPendingMessagesTx locks up to limit pending rows, skipping rows already locked by another relay.
	GetPendingMessagesTx(ctx context.Context, querier domain.Querier, limit int) ([]domain.OutboxMessage, error)
	MarkMessagesAsSentTx(ctx context.Context, querier domain.Querier, ids []string) error
	// RecordFailureTx bumps attempts and moves rows that reached maxAttempts to FAILED.
	RecordFailureTx(ctx context.Context, querier domain.Querier, ids []string, maxAttempts int) error
}

const MessageColumns = "id, aggregate_type, aggregate_id, message_type, key_value, payload, status, attempts, created_at, sent_at"

type RowScanner interface {
	Scan(dest ...any) error
}

func ScanMessage(row RowScanner) (domain.OutboxMessage, error) {
	msg := domain.OutboxMessage{}
	var status string
	var sentAt sql.NullTime
	err := row.Scan(
		&msg.ID,
		&msg.AggregateType,
		&msg.AggregateID,
		&msg.MessageType,
		&msg.Key,
		&msg.Payload,
		&status,
		&msg.Attempts,
		&msg.CreatedAt,
		&sentAt,
	)
	if err != nil {
		return msg, err
	}
	msg.Status = domain.OutboxMessageStatus(status)
	if sentAt.Valid {
		msg.SentAt = &sentAt.Time
	}
	return msg, nil
}
