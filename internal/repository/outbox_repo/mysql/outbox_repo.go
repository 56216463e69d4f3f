package mysql

import (
	"context"
	"fmt"
	"strings"
	"time"

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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
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
		WHERE status = ?
		ORDER BY created_at ASC
		LIMIT ?
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
	in, idArgs := inClause(ids)
	query := "UPDATE outbox_messages SET status = ?, sent_at = ? WHERE id IN " + in
	args := append([]any{string(domain.OutboxStatusSent), time.Now().UTC()}, idArgs...)
	res, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark outbox messages as sent: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for outbox sent: %w", err)
	}
	if rowsAffected != int64(len(ids)) {
		return fmt.Errorf("not all outbox messages were marked as sent; expected %d, got %d", len(ids), rowsAffected)
	}
	return nil
}

// RecordFailureTx relies on MySQL evaluating SET assignments left to right,
// so status is computed from the attempts value before the increment.
func (r *OutboxRepository) RecordFailureTx(ctx context.Context, querier domain.Querier, ids []string, maxAttempts int) error {
	if len(ids) == 0 {
		return nil
	}
	in, idArgs := inClause(ids)
	query := "UPDATE outbox_messages SET status = CASE WHEN attempts + 1 >= ? THEN 'FAILED' ELSE status END, attempts = attempts + 1 WHERE id IN " + in
	args := append([]any{maxAttempts}, idArgs...)
	if _, err := querier.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record outbox failure: %w", err)
	}
	return nil
}

func inClause(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ") + ")", args
}

var _ outbox_repo.OutboxRepository = (*OutboxRepository)(nil)
