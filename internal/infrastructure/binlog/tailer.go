// Package binlog tails the MySQL binary log and reports row changes of the
// ledger tables. It needs a user with REPLICATION SLAVE and REPLICATION CLIENT.
package binlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-mysql-org/go-mysql/mysql"
	"github.com/go-mysql-org/go-mysql/replication"
	"go.uber.org/zap"
)

type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// RowChange is one changed row; for updates Before holds the previous image.
type RowChange struct {
	Schema string
	Table  string
	Action Action
	Before []any
	After  []any
}

type ChangeHandler func(ctx context.Context, change RowChange) error

type Config struct {
	Host     string
	Port     uint16
	User     string
	Password string
	ServerID uint32
	// Schema restricts reported changes to one database; empty reports all.
	Schema string
}

type Tailer struct {
	cfg    Config
	logger *zap.Logger
}

func NewTailer(cfg Config, logger *zap.Logger) *Tailer {
	return &Tailer{cfg: cfg, logger: logger}
}

// CurrentPosition reads the binlog position the server is writing to now.
func CurrentPosition(ctx context.Context, db *sql.DB) (mysql.Position, error) {
	var file string
	var position uint32
	var doDB, ignoreDB, gtidSet sql.NullString
	err := db.QueryRowContext(ctx, "SHOW MASTER STATUS").Scan(&file, &position, &doDB, &ignoreDB, &gtidSet)
	if err != nil {
		return mysql.Position{}, fmt.Errorf("failed to read binlog position: %w", err)
	}
	return mysql.Position{Name: file, Pos: position}, nil
}

// Run streams events from pos until ctx is cancelled.
func (t *Tailer) Run(ctx context.Context, pos mysql.Position, handle ChangeHandler) error {
	syncer := replication.NewBinlogSyncer(replication.BinlogSyncerConfig{
		ServerID:   t.cfg.ServerID,
		Flavor:     mysql.MySQLFlavor,
		Host:       t.cfg.Host,
		Port:       t.cfg.Port,
		User:       t.cfg.User,
		Password:   t.cfg.Password,
		UseDecimal: true,
		ParseTime:  true,
	})
	defer syncer.Close()

	streamer, err := syncer.StartSync(pos)
	if err != nil {
		return fmt.Errorf("failed to start binlog sync: %w", err)
	}
	t.logger.Info("Binlog streaming started",
		zap.String("file", pos.Name),
		zap.Uint32("position", pos.Pos),
		zap.String("schema", t.cfg.Schema),
	)

	for {
		ev, err := streamer.GetEvent(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				t.logger.Info("Binlog streaming stopped")
				return nil
			}
			return fmt.Errorf("failed to read binlog event: %w", err)
		}

		switch e := ev.Event.(type) {
		case *replication.RotateEvent:
			t.logger.Debug("Binlog rotated",
				zap.ByteString("next_file", e.NextLogName),
				zap.Uint64("position", e.Position),
			)
		case *replication.RowsEvent:
			for _, change := range Changes(ev.Header.EventType, e) {
				if t.cfg.Schema != "" && change.Schema != t.cfg.Schema {
					continue
				}
				if err := handle(ctx, change); err != nil {
					return fmt.Errorf("failed to handle %s on %s: %w", change.Action, change.Table, err)
				}
			}
		}
	}
}

// Changes splits a rows event into per-row changes. Update events carry
// before and after images in consecutive rows.
func Changes(eventType replication.EventType, e *replication.RowsEvent) []RowChange {
	var action Action
	switch eventType {
	case replication.WRITE_ROWS_EVENTv1, replication.WRITE_ROWS_EVENTv2:
		action = ActionInsert
	case replication.UPDATE_ROWS_EVENTv1, replication.UPDATE_ROWS_EVENTv2:
		action = ActionUpdate
	case replication.DELETE_ROWS_EVENTv1, replication.DELETE_ROWS_EVENTv2:
		action = ActionDelete
	default:
		return nil
	}

	var schema, table string
	if e.Table != nil {
		schema, table = string(e.Table.Schema), string(e.Table.Table)
	}

	var changes []RowChange
	if action == ActionUpdate {
		for i := 0; i+1 < len(e.Rows); i += 2 {
			changes = append(changes, RowChange{Schema: schema, Table: table, Action: action, Before: e.Rows[i], After: e.Rows[i+1]})
		}
		return changes
	}
	for _, row := range e.Rows {
		change := RowChange{Schema: schema, Table: table, Action: action}
		if action == ActionDelete {
			change.Before = row
		} else {
			change.After = row
		}
		changes = append(changes, change)
	}
	return changes
}
