package event

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	AggregateAccount     = "account"
	AggregateTransaction = "transaction"

	TypeAccountCreated      = "account.created"
	TypeAccountUpdated      = "account.updated"
	TypeTransactionRecorded = "transaction.recorded"
)

// Event is anything the ledger writes into the outbox.
type Event interface {
	EventType() string
	AggregateType() string
	AggregateID() string
	// PartitionKey keeps all events of one account on the same Kafka partition.
	PartitionKey() string
}

// Envelope is the wire format published to Kafka.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type AccountSnapshot struct {
	AccountID int64           `json:"account_id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Phone     *string         `json:"phone,omitempty"`
	Address   *string         `json:"address,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
}

type AccountCreated struct {
	AccountSnapshot
}

func (e AccountCreated) EventType() string     { return TypeAccountCreated }
func (e AccountCreated) AggregateType() string { return AggregateAccount }
func (e AccountCreated) AggregateID() string   { return strconv.FormatInt(e.AccountID, 10) }
func (e AccountCreated) PartitionKey() string  { return e.AggregateID() }

type AccountUpdated struct {
	AccountSnapshot
	ChangedFields []string `json:"changed_fields"`
}

func (e AccountUpdated) EventType() string     { return TypeAccountUpdated }
func (e AccountUpdated) AggregateType() string { return AggregateAccount }
func (e AccountUpdated) AggregateID() string   { return strconv.FormatInt(e.AccountID, 10) }
func (e AccountUpdated) PartitionKey() string  { return e.AggregateID() }

type TransactionRecorded struct {
	TransactionID   int64           `json:"transaction_id"`
	AccountID       int64           `json:"account_id"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	Timestamp       time.Time       `json:"timestamp"`
	BalanceAfter    decimal.Decimal `json:"balance_after"`
}

func (e TransactionRecorded) EventType() string     { return TypeTransactionRecorded }
func (e TransactionRecorded) AggregateType() string { return AggregateTransaction }
func (e TransactionRecorded) AggregateID() string   { return strconv.FormatInt(e.TransactionID, 10) }
func (e TransactionRecorded) PartitionKey() string  { return strconv.FormatInt(e.AccountID, 10) }
