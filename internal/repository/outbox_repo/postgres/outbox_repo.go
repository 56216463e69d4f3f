package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ledger/internal/domain"
	"ledger/internal/repository/outbox_repo"
)

type OutboxRepository struct{}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{}
}

func (r *OutboxRepository) CreateMessageTx(ctx context.Context, querier domain.Querier, msg *domain.OutboxMessage) error {
	query := `
		INSERT INTO outbox_messages (id, aggregate_type, aggregate_id, message_type, key_value, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := querier.ExecContext(ctx, query,
		msg.ID,
		msg.AggregateType,
		msg.AggregateID,
		msg.MessageType,
		msg.Key,
		msg.Payload,
		string(msg.Status),
		msg.Attempts,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox message: %w", err)
	}
	return nil
}

func (r *OutboxRepository) GetPendingMessagesTx(ctx context.Context, querier domain.Querier, limit int) ([]domain.OutboxMessage, error) {
	query := `
		SELECT ` + outbox_repo.MessageColumns + `
		FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	rows, err := querier.QueryContext(ctx, query, string(domain.OutboxStatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.OutboxMessage
	for rows.Next() {
		msg, err := outbox_repo.ScanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox messages: %w", err)
	}

	return messages, nil
}

func (r *OutboxRepository) MarkMessagesAsSentTx(ctx context.Context, querier domain.Querier, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE outbox_messages
		SET status = $1, sent_at = $2
		WHERE id = ANY($3)
	`
	res, err := querier.ExecContext(ctx, query, string(domain.OutboxStatusSent), time.Now().UTC(), pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to mark outbox messages as sent: %w", err)
	}
	return expectAffected(res, len(ids), "sent")
}

func (r *OutboxRepository) RecordFailureTx(ctx context.Context, querier domain.Querier, ids []string, maxAttempts int) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE outbox_messages
		SET status = CASE WHEN attempts + 1 >= $1 THEN 'FAILED' ELSE status END,
			attempts = attempts + 1
		WHERE id = ANY($2)
	`
	res, err := querier.ExecContext(ctx, query, maxAttempts, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to record outbox failure: %w", err)
	}
	return expectAffected(res, len(ids), "failed")
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func expectAffected(res rowsAffecter, want int, what string) error {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for outbox %s: %w", what, err)
	}
	if rowsAffected != int64(want) {
		return fmt.Errorf("not all outbox messages were marked as %s; expected %d, got %d", what, want, rowsAffected)
	}
	return nil
}

var _ outbox_repo.OutboxRepository = (*OutboxRepository)(nil)
