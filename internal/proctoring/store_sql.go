package proctoring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-courseware/internal/blocks"
)

// SQLOracle reads attempt summaries from the shared exam_attempts table,
// written by the proctoring service. The engine only ever reads it.
type SQLOracle struct {
	db *sql.DB
}

func NewSQLOracle(db *sql.DB) *SQLOracle { return &SQLOracle{db: db} }

func (s *SQLOracle) AttemptSummary(ctx context.Context, userID string, course blocks.CourseKey, block blocks.BlockKey) (AttemptSummary, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT status FROM exam_attempts WHERE user_id=$1 AND course_id=$2 AND block_id=$3`,
		userID, course.String(), block.String())
	var status string
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AttemptSummary{}, false, nil
		}
		return AttemptSummary{}, false, fmt.Errorf("proctoring: attempt summary for user=%s block=%s: %w", userID, block, err)
	}
	return AttemptSummary{
		UserID: userID,
		Course: course,
		Block:  block,
		Status: AttemptStatus(status),
	}, true, nil
}

// UpsertStatus mirrors a status update from the proctoring service.
// Exposed so offline deployments can run everything on one database.
func (s *SQLOracle) UpsertStatus(ctx context.Context, a AttemptSummary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exam_attempts (user_id, course_id, block_id, status, updated_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (user_id, block_id) DO UPDATE SET status=EXCLUDED.status, updated_at=EXCLUDED.updated_at`,
		a.UserID, a.Course.String(), a.Block.String(), string(a.Status), time.Now().Unix())
	return err
}
