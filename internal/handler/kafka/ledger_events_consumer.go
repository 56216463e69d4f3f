package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"ledger/internal/domain/event"
	kafka_infra "ledger/internal/infrastructure/kafka"
)

// EventSink receives every decoded ledger event.
type EventSink interface {
	HandleEvent(ctx context.Context, envelope event.Envelope) error
}

// LedgerEventsMessageHandler decodes ledger event envelopes and passes them to sink.
// Undecodable messages are logged and skipped so they do not block the partition.
func LedgerEventsMessageHandler(sink EventSink, logger *zap.Logger) kafka_infra.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var envelope event.Envelope
		if err := json.Unmarshal(msg.Value, &envelope); err != nil {
			logger.Error("Failed to unmarshal ledger event envelope",
				zap.Error(err),
				zap.ByteString("value", msg.Value),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			return nil
		}

		if err := sink.HandleEvent(ctx, envelope); err != nil {
			return fmt.Errorf("failed to handle %s event %s: %w", envelope.Type, envelope.ID, err)
		}
		return nil
	}
}

// LogSink writes a structured log line per event.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) HandleEvent(_ context.Context, envelope event.Envelope) error {
	fields := []zap.Field{
		zap.String("event_id", envelope.ID),
		zap.String("event_type", envelope.Type),
		zap.Time("occurred_at", envelope.OccurredAt),
	}

	switch envelope.Type {
	case event.TypeTransactionRecorded:
		var payload event.TransactionRecorded
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return fmt.Errorf("invalid %s payload: %w", envelope.Type, err)
		}
		fields = append(fields,
			zap.Int64("transaction_id", payload.TransactionID),
			zap.Int64("account_id", payload.AccountID),
			zap.String("transaction_type", payload.TransactionType),
			zap.String("amount", payload.Amount.String()),
			zap.String("balance_after", payload.BalanceAfter.String()),
		)
	case event.TypeAccountCreated, event.TypeAccountUpdated:
		var payload event.AccountUpdated
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return fmt.Errorf("invalid %s payload: %w", envelope.Type, err)
		}
		fields = append(fields,
			zap.Int64("account_id", payload.AccountID),
			zap.String("balance", payload.Balance.String()),
		)
		if len(payload.ChangedFields) > 0 {
			fields = append(fields, zap.Strings("changed_fields", payload.ChangedFields))
		}
	default:
		s.logger.Warn("Unknown ledger event type", fields...)
		return nil
	}

	s.logger.Info("Ledger event", fields...)
	return nil
}
