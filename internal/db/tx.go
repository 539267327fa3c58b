package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// WithTx выполняет fn внутри транзакции.
//
// Коммит — только если fn вернула nil. При ошибке или панике транзакция
// откатывается; паника пробрасывается дальше после отката.
// readOnly помечает транзакцию только для чтения (запросы списка/поиска).
func WithTx(ctx context.Context, db *sql.DB, readOnly bool, fn func(q Querier) error) (err error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: readOnly})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
