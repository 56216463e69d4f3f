package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ledger/internal/domain"
	"ledger/internal/infrastructure/database"
	kafkaInfra "ledger/internal/infrastructure/kafka"
)

type OutboxRepository interface {
	GetPendingMessagesTx(ctx context.Context, querier domain.Querier, limit int) ([]domain.OutboxMessage, error)
	MarkMessagesAsSentTx(ctx context.Context, querier domain.Querier, ids []string) error
	RecordFailureTx(ctx context.Context, querier domain.Querier, ids []string, maxAttempts int) error
}

type ProcessorConfig struct {
	Topic        string
	PollInterval time.Duration
	PollTimeout  time.Duration
	BatchSize    int
	MaxAttempts  int
}

// Processor relays PENDING outbox rows to Kafka.
type Processor struct {
	txManager database.TxManager
	repo      OutboxRepository
	producer  kafkaInfra.Producer
	cfg       ProcessorConfig
	logger    *zap.Logger
}

func NewProcessor(
	txManager database.TxManager,
	repo OutboxRepository,
	producer kafkaInfra.Producer,
	cfg ProcessorConfig,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		txManager: txManager,
		repo:      repo,
		producer:  producer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start polls until ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("Starting outbox processor",
		zap.String("topic", p.cfg.Topic),
		zap.Duration("poll_interval", p.cfg.PollInterval),
		zap.Int("batch_size", p.cfg.BatchSize),
	)
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox processor stopped")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("Failed to process outbox batch", zap.Error(err))
			}
		}
	}
}

// ProcessBatch relays one batch and returns how many messages reached Kafka.
// Row locks are held while producing so concurrent relays never pick the same rows.
func (p *Processor) ProcessBatch(ctx context.Context) (int, error) {
	batchCtx, cancel := context.WithTimeout(ctx, p.cfg.PollTimeout)
	defer cancel()

	sent := 0
	err := p.txManager.WithinTx(batchCtx, func(ctx context.Context, q domain.Querier) error {
		messages, err := p.repo.GetPendingMessagesTx(ctx, q, p.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			p.logger.Debug("No pending outbox messages")
			return nil
		}

		var sentIDs, failedIDs []string
		for _, msg := range messages {
			if err := p.producer.Produce(ctx, p.cfg.Topic, msg.Key, msg.Payload); err != nil {
				p.logger.Warn("Failed to relay outbox message",
					zap.String("message_id", msg.ID),
					zap.String("message_type", msg.MessageType),
					zap.Int("attempts", msg.Attempts+1),
					zap.Error(err),
				)
				failedIDs = append(failedIDs, msg.ID)
				continue
			}
			sentIDs = append(sentIDs, msg.ID)
		}

		if err := p.repo.MarkMessagesAsSentTx(ctx, q, sentIDs); err != nil {
			return err
		}
		if err := p.repo.RecordFailureTx(ctx, q, failedIDs, p.cfg.MaxAttempts); err != nil {
			return err
		}
		sent = len(sentIDs)
		p.logger.Info("Outbox batch relayed",
			zap.Int("sent", len(sentIDs)),
			zap.Int("failed", len(failedIDs)),
		)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sent, nil
}
