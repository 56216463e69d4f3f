package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"ledger/internal/domain"
	"ledger/internal/domain/event"
	"ledger/internal/infrastructure/database"
)

type fakeTxManager struct {
	commits, rollbacks int
}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn database.TxFunc) error {
	if err := fn(ctx, nil); err != nil {
		m.rollbacks++
		return err
	}
	m.commits++
	return nil
}

func (m *fakeTxManager) Querier() domain.Querier { return nil }

type fakeRepo struct {
	created  []*domain.OutboxMessage
	pending  []domain.OutboxMessage
	sent     []string
	failed   []string
	maxSeen  int
	fetchErr error
}

func (r *fakeRepo) CreateMessageTx(_ context.Context, _ domain.Querier, msg *domain.OutboxMessage) error {
	r.created = append(r.created, msg)
	return nil
}

func (r *fakeRepo) GetPendingMessagesTx(_ context.Context, _ domain.Querier, limit int) ([]domain.OutboxMessage, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	if len(r.pending) > limit {
		return r.pending[:limit], nil
	}
	return r.pending, nil
}

func (r *fakeRepo) MarkMessagesAsSentTx(_ context.Context, _ domain.Querier, ids []string) error {
	r.sent = append(r.sent, ids...)
	return nil
}

func (r *fakeRepo) RecordFailureTx(_ context.Context, _ domain.Querier, ids []string, maxAttempts int) error {
	r.failed = append(r.failed, ids...)
	r.maxSeen = maxAttempts
	return nil
}

type producedMessage struct {
	topic, key string
	value      []byte
}

type fakeProducer struct {
	produced []producedMessage
	failKeys map[string]bool
}

func (p *fakeProducer) Produce(_ context.Context, topic, key string, value []byte) error {
	if p.failKeys[key] {
		return errors.New("broker unavailable")
	}
	p.produced = append(p.produced, producedMessage{topic: topic, key: key, value: value})
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func TestPublishTxWritesEnvelope(t *testing.T) {
	repo := &fakeRepo{}
	publisher := NewPublisher(repo)
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	publisher.now = func() time.Time { return fixed }

	evt := event.TransactionRecorded{
		TransactionID:   9,
		AccountID:       3,
		Amount:          decimal.NewFromInt(200),
		TransactionType: "withdrawal",
		Timestamp:       fixed,
		BalanceAfter:    decimal.NewFromInt(400),
	}
	if err := publisher.PublishTx(context.Background(), nil, evt); err != nil {
		t.Fatalf("PublishTx: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("created=%d want=1", len(repo.created))
	}
	msg := repo.created[0]
	if msg.Key != "3" || msg.AggregateID != "9" || msg.AggregateType != event.AggregateTransaction {
		t.Fatalf("unexpected routing fields: %+v", msg)
	}
	if msg.Status != domain.OutboxStatusPending || !msg.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected status fields: %+v", msg)
	}

	var envelope event.Envelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if envelope.ID != msg.ID || envelope.Type != event.TypeTransactionRecorded {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
	var payload event.TransactionRecorded
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if !payload.BalanceAfter.Equal(decimal.NewFromInt(400)) || payload.AccountID != 3 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func newTestProcessor(t *testing.T, repo *fakeRepo, producer *fakeProducer) (*Processor, *fakeTxManager) {
	tm := &fakeTxManager{}
	return NewProcessor(tm, repo, producer, ProcessorConfig{
		Topic:        "ledger_events",
		PollInterval: 10 * time.Millisecond,
		PollTimeout:  time.Second,
		BatchSize:    2,
		MaxAttempts:  5,
	}, zaptest.NewLogger(t)), tm
}

func TestProcessBatchMarksSentAndFailed(t *testing.T) {
	repo := &fakeRepo{pending: []domain.OutboxMessage{
		{ID: "m1", Key: "1", Payload: []byte(`{"n":1}`)},
		{ID: "m2", Key: "2", Payload: []byte(`{"n":2}`)},
		{ID: "m3", Key: "3", Payload: []byte(`{"n":3}`)},
	}}
	producer := &fakeProducer{failKeys: map[string]bool{"2": true}}
	p, tm := newTestProcessor(t, repo, producer)

	sent, err := p.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent=%d want=1", sent)
	}
	if len(repo.sent) != 1 || repo.sent[0] != "m1" {
		t.Fatalf("sent ids=%v want [m1]", repo.sent)
	}
	if len(repo.failed) != 1 || repo.failed[0] != "m2" || repo.maxSeen != 5 {
		t.Fatalf("failed ids=%v max=%d", repo.failed, repo.maxSeen)
	}
	if producer.produced[0].topic != "ledger_events" || producer.produced[0].key != "1" {
		t.Fatalf("unexpected produced message: %+v", producer.produced[0])
	}
	if tm.commits != 1 {
		t.Fatalf("commits=%d want=1", tm.commits)
	}
}

func TestProcessBatchFetchErrorRollsBack(t *testing.T) {
	repo := &fakeRepo{fetchErr: errors.New("db down")}
	p, tm := newTestProcessor(t, repo, &fakeProducer{})

	if _, err := p.ProcessBatch(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if tm.rollbacks != 1 {
		t.Fatalf("rollbacks=%d want=1", tm.rollbacks)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	repo := &fakeRepo{pending: []domain.OutboxMessage{{ID: "m1", Key: "1"}}}
	p, _ := newTestProcessor(t, repo, &fakeProducer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor did not stop after cancel")
	}
}

func TestNopPublisher(t *testing.T) {
	if err := (NopPublisher{}).PublishTx(context.Background(), nil, event.AccountCreated{}); err != nil {
		t.Fatal(err)
	}
}
