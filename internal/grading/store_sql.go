package grading

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-courseware/internal/blocks"
)

// SQLScoreStore persists scores in the block_scores table.
type SQLScoreStore struct {
	db *sql.DB
}

func NewSQLScoreStore(db *sql.DB) *SQLScoreStore { return &SQLScoreStore{db: db} }

func (s *SQLScoreStore) RecordScore(ctx context.Context, userID string, block blocks.BlockKey, sc Score) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO block_scores (user_id, course_id, block_id, earned, possible, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (user_id, block_id) DO UPDATE SET earned=EXCLUDED.earned, possible=EXCLUDED.possible, updated_at=EXCLUDED.updated_at`,
		userID, block.Course.String(), block.String(), sc.Earned, sc.Possible, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("grading: record score user=%s block=%s: %w", userID, block, err)
	}
	return nil
}

func (s *SQLScoreStore) GetScore(ctx context.Context, userID string, block blocks.BlockKey) (Score, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT earned, possible FROM block_scores WHERE user_id=$1 AND block_id=$2`,
		userID, block.String())
	var sc Score
	if err := row.Scan(&sc.Earned, &sc.Possible); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Score{}, false, nil
		}
		return Score{}, false, fmt.Errorf("grading: get score user=%s block=%s: %w", userID, block, err)
	}
	return sc, true, nil
}
