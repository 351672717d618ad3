package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxRunner runs fn inside a single database transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(exec SQLExecutor) error) error
}

type postgresTxRunner struct {
	db *sql.DB
}

func NewPostgresTxRunner(db *sql.DB) TxRunner {
	return &postgresTxRunner{db: db}
}

func (r *postgresTxRunner) WithinTx(ctx context.Context, fn func(exec SQLExecutor) error) (txErr error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				txErr = fmt.Errorf("transaction processing error: %w (rollback also failed: %v)", txErr, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()
	txErr = fn(tx)
	return txErr
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError // Возвращаем переданную ошибку "не найдено"
	}
	return nil
}

// newID generates a sortable, URL safe document id.
func newID() string {
	return xid.New().String()
}

// DefaultBatchSize bounds the number of values bound into one ANY($1) filter.
const DefaultBatchSize = 10

// chunkIDs splits ids into consecutive batches of at most size elements.
func chunkIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}

// dedupe keeps the first occurrence of every id.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// maxParallelBatches caps concurrent queries issued by queryInBatches.
const maxParallelBatches = 4

// queryInBatches runs fetch once per batch of ids and concatenates the results
// in batch order. Duplicate and empty ids are dropped before batching.
func queryInBatches[T any](ctx context.Context, ids []string, size int, fetch func(ctx context.Context, batch []string) ([]T, error)) ([]T, error) {
	batches := chunkIDs(dedupe(ids), size)
	results := make([][]T, len(batches))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelBatches)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			items, err := fetch(gCtx, batch)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]T, 0)
	for _, items := range results {
		out = append(out, items...)
	}
	return out, nil
}

func pqErrorCode(err error) (pq.ErrorCode, string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code, pqErr.Constraint, true
	}
	return "", "", false
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
