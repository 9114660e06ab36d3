package activity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertSQL = `INSERT INTO activities (id, action, account_id, description, metadata, ip, user_agent, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// Recorder persists audit records into the activities table.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder returns a new Recorder.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Record persists the entry using the pool.
func (r *Recorder) Record(ctx context.Context, rec Record) error {
	if r == nil || r.pool == nil {
		return errors.New("activity: recorder not initialised")
	}
	args, err := insertArgs(rec)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, insertSQL, args...)
	return err
}

// RecordInTx persists the entry inside an open transaction so the audit row
// commits or rolls back together with the business mutation.
func RecordInTx(ctx context.Context, tx pgx.Tx, rec Record) error {
	args, err := insertArgs(rec)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, insertSQL, args...)
	return err
}

func insertArgs(rec Record) ([]any, error) {
	if rec.Action == "" || rec.AccountID == "" {
		return nil, errors.New("activity: record requires action and account id")
	}
	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return nil, err
	}
	return []any{
		uuid.NewString(),
		rec.Action,
		rec.AccountID,
		rec.Description,
		metaJSON,
		rec.IP,
		rec.UserAgent,
		time.Now().UTC(),
	}, nil
}
