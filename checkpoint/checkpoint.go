// Package checkpoint persists the last fully processed source chain block,
// so that a restarted listener resumes scanning where it left off instead of
// replaying the whole history.
package checkpoint

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bridgelock/listener/checkpoint/migrations"
	"github.com/bridgelock/listener/db"
	"github.com/bridgelock/listener/log"
)

// Store is a durable single-value store for the last processed block number.
// Save is atomic: after a crash the stored value is either the previous or
// the new checkpoint, never a torn write.
type Store struct {
	logger *log.Logger
	db     *sql.DB
}

func NewStore(logger *log.Logger, dbPath string) (*Store, error) {
	if err := migrations.RunMigrations(dbPath); err != nil {
		return nil, err
	}
	database, err := db.NewSQLiteDB(dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{
		logger: logger,
		db:     database,
	}, nil
}

// Load returns the persisted checkpoint, or db.ErrNotFound if no checkpoint
// has been saved yet.
func (s *Store) Load(ctx context.Context) (uint64, error) {
	var blockNum uint64
	row := s.db.QueryRow(`SELECT block_num FROM checkpoint WHERE lock = 1;`)
	if err := row.Scan(&blockNum); err != nil {
		return 0, db.ReturnErrNotFound(err)
	}
	return blockNum, nil
}

// Save persists blockNum as the new checkpoint. Checkpoints never move
// backwards: saving a block number lower than the stored one is rejected.
func (s *Store) Save(ctx context.Context, blockNum uint64) error {
	tx, err := db.NewTx(ctx, s.db)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if errRllbck := tx.Rollback(); errRllbck != nil {
				s.logger.Errorf("error while rolling back tx: %v", errRllbck)
			}
		}
	}()

	var current uint64
	row := tx.QueryRow(`SELECT block_num FROM checkpoint WHERE lock = 1;`)
	err = row.Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if err == nil && blockNum < current {
		err = fmt.Errorf("checkpoint going backwards: stored %d, new %d", current, blockNum)
		return err
	}

	if _, err = tx.Exec(`
		INSERT INTO checkpoint (lock, block_num) VALUES (1, $1)
		ON CONFLICT(lock) DO UPDATE SET block_num = $1;
	`, blockNum); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}

	s.logger.Debugf("checkpoint saved: last processed block is now %d", blockNum)
	return nil
}
