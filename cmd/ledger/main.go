package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ledger/internal/app/accounts"
	"ledger/internal/app/transactions"
	"ledger/internal/config"
	"ledger/internal/infrastructure/database"
	kafka_infra "ledger/internal/infrastructure/kafka"
	"ledger/internal/outbox"
	"ledger/internal/repository/accounts_repo"
	accountsMySQL "ledger/internal/repository/accounts_repo/mysql"
	accountsPostgres "ledger/internal/repository/accounts_repo/postgres"
	"ledger/internal/repository/outbox_repo"
	outboxMySQL "ledger/internal/repository/outbox_repo/mysql"
	outboxPostgres "ledger/internal/repository/outbox_repo/postgres"
	"ledger/internal/repository/transactions_repo"
	transactionsMySQL "ledger/internal/repository/transactions_repo/mysql"
	transactionsPostgres "ledger/internal/repository/transactions_repo/postgres"
	"ledger/internal/router"
)

type repositories struct {
	accounts     accounts_repo.AccountRepository
	transactions transactions_repo.TransactionRepository
	outbox       outbox_repo.OutboxRepository
}

func newRepositories(driver string) repositories {
	if driver == config.DriverMySQL {
		return repositories{
			accounts:     accountsMySQL.NewAccountRepository(),
			transactions: transactionsMySQL.NewTransactionRepository(),
			outbox:       outboxMySQL.NewOutboxRepository(),
		}
	}
	return repositories{
		accounts:     accountsPostgres.NewAccountRepository(),
		transactions: transactionsPostgres.NewTransactionRepository(),
		outbox:       outboxPostgres.NewOutboxRepository(),
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	if err := zapConfig.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	return zapConfig.Build()
}

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()
	appLogger.Info("Ledger service starting", zap.String("db_driver", cfg.DB.Driver), zap.Bool("events_enabled", cfg.EventsEnabled))

	// Amounts and balances are JSON numbers on the wire.
	decimal.MarshalJSONWithoutQuotes = true

	ctxMain, cancelMain := context.WithCancel(context.Background())
	defer cancelMain()

	appLogger.Info("Waiting for database to be available...")
	db, err := database.ConnectWithRetry(ctxMain, database.DBConfig{
		Driver:          cfg.DB.Driver,
		DSN:             cfg.GetDBConnectionString(),
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}, cfg.DB.ConnectRetries, cfg.DB.RetryDelay, appLogger)
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer closeDB(db, appLogger)
	appLogger.Info("Connected to database")

	appLogger.Info("Running database migrations...", zap.String("source", cfg.MigrationsPath))
	if err := database.RunMigrations(cfg.MigrationsPath, cfg.GetDBMigrationConnectionString(), appLogger); err != nil {
		appLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	repos := newRepositories(cfg.DB.Driver)
	txManager := database.NewSQLTxManager(db, appLogger.With(zap.String("component", "TxManager")))

	var wg sync.WaitGroup
	var events outbox.Publisher = outbox.NopPublisher{}
	if cfg.EventsEnabled {
		events = outbox.NewPublisher(repos.outbox)

		topicCtx, cancelTopics := context.WithTimeout(ctxMain, 10*time.Second)
		if err := kafka_infra.EnsureTopics(topicCtx, cfg.GetKafkaBrokers(), []string{cfg.KafkaLedgerEventsTopic}, appLogger); err != nil {
			cancelTopics()
			appLogger.Fatal("Failed to ensure Kafka topics", zap.Error(err))
		}
		cancelTopics()

		kafkaProducer := kafka_infra.NewProducer(cfg.GetKafkaBrokers(), appLogger.With(zap.String("component", "KafkaProducer")))
		defer kafkaProducer.Close()

		outboxProcessor := outbox.NewProcessor(txManager, repos.outbox, kafkaProducer, outbox.ProcessorConfig{
			Topic:        cfg.KafkaLedgerEventsTopic,
			PollInterval: cfg.OutboxPollInterval,
			PollTimeout:  cfg.OutboxPollTimeout,
			BatchSize:    cfg.OutboxBatchSize,
			MaxAttempts:  cfg.OutboxMaxAttempts,
		}, appLogger.With(zap.String("component", "OutboxProcessor")))

		wg.Add(1)
		go func() {
			defer wg.Done()
			outboxProcessor.Start(ctxMain)
		}()
	}

	ledger := accounts.NewLedger(txManager, repos.accounts, events, appLogger.With(zap.String("component", "AccountLedger")))
	recorder := transactions.NewRecorder(txManager, ledger, repos.transactions, events, appLogger.With(zap.String("component", "TransactionRecorder")))
	appLogger.Info("Ledger services initialized")

	httpServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router.NewRouter(router.Config{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			RequestTimeout: 30 * time.Second,
		}, ledger, recorder, appLogger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	appLogger.Info("Shutting down application...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	cancelMain()
	wg.Wait()
	appLogger.Info("Application stopped")
}

func closeDB(db *sql.DB, logger *zap.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("Error closing database connection", zap.Error(err))
		return
	}
	logger.Info("Database connection closed")
}
