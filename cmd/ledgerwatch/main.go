package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ledger/internal/config"
	ledger_kafka "ledger/internal/handler/kafka"
	"ledger/internal/infrastructure/binlog"
	"ledger/internal/infrastructure/database"
	kafka_infra "ledger/internal/infrastructure/kafka"
)

const (
	sourceKafka  = "kafka"
	sourceBinlog = "binlog"
)

func main() {
	source := flag.String("source", sourceKafka, "where to read ledger changes from: kafka or binlog")
	flag.Parse()

	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	if err := zapConfig.Level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid LOG_LEVEL %q: %v\n", cfg.LogLevel, err)
		os.Exit(1)
	}
	appLogger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger.Info("Ledgerwatch starting", zap.String("source", *source))
	switch *source {
	case sourceKafka:
		err = watchKafka(ctx, cfg, appLogger)
	case sourceBinlog:
		err = watchBinlog(ctx, cfg, appLogger)
	default:
		err = fmt.Errorf("unknown source %q: must be %q or %q", *source, sourceKafka, sourceBinlog)
	}
	if err != nil {
		appLogger.Fatal("Ledgerwatch failed", zap.Error(err))
	}
	appLogger.Info("Ledgerwatch stopped")
}

func watchKafka(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	consumer := kafka_infra.NewConsumer(
		cfg.GetKafkaBrokers(),
		cfg.KafkaConsumerGroup,
		cfg.KafkaLedgerEventsTopic,
		logger.With(zap.String("component", "LedgerEventsConsumer")),
	)
	handler := ledger_kafka.LedgerEventsMessageHandler(ledger_kafka.NewLogSink(logger), logger)
	return consumer.Start(ctx, handler)
}

func watchBinlog(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.DB.Driver != config.DriverMySQL {
		return fmt.Errorf("binlog source needs DB_DRIVER=%s, got %q", config.DriverMySQL, cfg.DB.Driver)
	}

	db, err := database.ConnectWithRetry(ctx, database.DBConfig{
		Driver:       cfg.DB.Driver,
		DSN:          cfg.GetDBConnectionString(),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, cfg.DB.ConnectRetries, cfg.DB.RetryDelay, logger)
	if err != nil {
		return err
	}
	pos, err := binlog.CurrentPosition(ctx, db)
	db.Close()
	if err != nil {
		return err
	}

	tailer := binlog.NewTailer(binlog.Config{
		Host:     cfg.DB.Host,
		Port:     uint16(cfg.DB.Port),
		User:     cfg.Binlog.User,
		Password: cfg.Binlog.Password,
		ServerID: cfg.Binlog.ServerID,
		Schema:   cfg.DB.Name,
	}, logger.With(zap.String("component", "BinlogTailer")))

	return tailer.Run(ctx, pos, func(_ context.Context, change binlog.RowChange) error {
		logRowChange(logger, change)
		return nil
	})
}

func logRowChange(logger *zap.Logger, change binlog.RowChange) {
	row := change.After
	if change.Action == binlog.ActionDelete {
		row = change.Before
	}

	switch change.Table {
	case "transactions":
		txn, err := binlog.TransactionFromRow(row)
		if err != nil {
			logger.Warn("Skipping unreadable transactions row", zap.Error(err))
			return
		}
		logger.Info("Transaction row changed",
			zap.String("action", string(change.Action)),
			zap.Int64("transaction_id", txn.ID),
			zap.Int64("account_id", txn.AccountID),
			zap.String("amount", txn.Amount.String()),
			zap.String("transaction_type", string(txn.Type)),
			zap.Time("timestamp", txn.Timestamp),
		)
	case "accounts":
		account, err := binlog.AccountFromRow(row)
		if err != nil {
			logger.Warn("Skipping unreadable accounts row", zap.Error(err))
			return
		}
		fields := []zap.Field{
			zap.String("action", string(change.Action)),
			zap.Int64("account_id", account.ID),
			zap.String("balance", account.Balance.String()),
		}
		if change.Action == binlog.ActionUpdate {
			if before, err := binlog.AccountFromRow(change.Before); err == nil && !before.Balance.Equal(account.Balance) {
				fields = append(fields, zap.String("previous_balance", before.Balance.String()))
			}
		}
		logger.Info("Account row changed", fields...)
	}
}
