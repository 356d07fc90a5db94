package gating

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-courseware/internal/blocks"
)

// SQLStore persists gating relationships and fulfillment in SQL, sqlite
// or postgres via the shared db package.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) AddPrerequisite(ctx context.Context, course blocks.CourseKey, block blocks.BlockKey) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO gating_prerequisites (course_id, block_id, created_at)
		 VALUES ($1,$2,$3)
		 ON CONFLICT (course_id, block_id) DO NOTHING`,
		course.String(), block.String(), time.Now().Unix())
	return err
}

func (s *SQLStore) RemovePrerequisite(ctx context.Context, course blocks.CourseKey, block blocks.BlockKey) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	rows, err := tx.QueryContext(ctx,
		`SELECT gated_id FROM gating_requirements WHERE course_id=$1 AND gating_id=$2`,
		course.String(), block.String())
	if err != nil {
		return err
	}
	var gated []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			rows.Close()
			return err
		}
		gated = append(gated, g)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()
	for _, g := range gated {
		if _, err := tx.ExecContext(ctx, `DELETE FROM gating_fulfillments WHERE course_id=$1 AND gated_id=$2`, course.String(), g); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM gating_requirements WHERE course_id=$1 AND gating_id=$2`, course.String(), block.String()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM gating_prerequisites WHERE course_id=$1 AND block_id=$2`, course.String(), block.String()); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) IsPrerequisite(ctx context.Context, course blocks.CourseKey, block blocks.BlockKey) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM gating_prerequisites WHERE course_id=$1 AND block_id=$2`,
		course.String(), block.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("gating: is prerequisite %s: %w", block, err)
	}
	return true, nil
}

func (s *SQLStore) ListPrerequisites(ctx context.Context, course blocks.CourseKey) ([]blocks.BlockKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT block_id FROM gating_prerequisites WHERE course_id=$1 ORDER BY block_id`,
		course.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []blocks.BlockKey
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		k, err := blocks.ParseBlockKey(id)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetRequiredContent(ctx context.Context, req Requirement) error {
	ok, err := s.IsPrerequisite(ctx, req.Course, req.Gating)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO gating_requirements (course_id, gated_id, gating_id, min_score, updated_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (course_id, gated_id) DO UPDATE SET gating_id=EXCLUDED.gating_id, min_score=EXCLUDED.min_score, updated_at=EXCLUDED.updated_at`,
		req.Course.String(), req.Gated.String(), req.Gating.String(), req.MinScore, time.Now().Unix())
	return err
}

func (s *SQLStore) GetRequiredContent(ctx context.Context, course blocks.CourseKey, gated blocks.BlockKey) (Requirement, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT gating_id, min_score FROM gating_requirements WHERE course_id=$1 AND gated_id=$2`,
		course.String(), gated.String())
	var gatingID string
	var minScore float64
	if err := row.Scan(&gatingID, &minScore); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Requirement{}, false, nil
		}
		return Requirement{}, false, fmt.Errorf("gating: required content for %s: %w", gated, err)
	}
	gk, err := blocks.ParseBlockKey(gatingID)
	if err != nil {
		return Requirement{}, false, err
	}
	return Requirement{Course: course, Gated: gated, Gating: gk, MinScore: minScore}, true, nil
}

func (s *SQLStore) RequirementsByGating(ctx context.Context, course blocks.CourseKey, gating blocks.BlockKey) ([]Requirement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT gated_id, min_score FROM gating_requirements WHERE course_id=$1 AND gating_id=$2 ORDER BY gated_id`,
		course.String(), gating.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Requirement
	for rows.Next() {
		var gatedID string
		var minScore float64
		if err := rows.Scan(&gatedID, &minScore); err != nil {
			return nil, err
		}
		gk, err := blocks.ParseBlockKey(gatedID)
		if err != nil {
			return nil, err
		}
		out = append(out, Requirement{Course: course, Gated: gk, Gating: gating, MinScore: minScore})
	}
	return out, rows.Err()
}

func (s *SQLStore) SetFulfillment(ctx context.Context, f Fulfillment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO gating_fulfillments (user_id, course_id, gated_id, score, fulfilled, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (user_id, gated_id) DO UPDATE SET score=EXCLUDED.score, fulfilled=EXCLUDED.fulfilled, updated_at=EXCLUDED.updated_at`,
		f.UserID, f.Course.String(), f.Gated.String(), f.Score, f.Fulfilled, time.Now().Unix())
	return err
}

func (s *SQLStore) GetFulfillment(ctx context.Context, userID string, course blocks.CourseKey, gated blocks.BlockKey) (Fulfillment, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT score, fulfilled FROM gating_fulfillments WHERE user_id=$1 AND gated_id=$2`,
		userID, gated.String())
	var f Fulfillment
	if err := row.Scan(&f.Score, &f.Fulfilled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Fulfillment{}, false, nil
		}
		return Fulfillment{}, false, fmt.Errorf("gating: fulfillment user=%s gated=%s: %w", userID, gated, err)
	}
	f.UserID = userID
	f.Course = course
	f.Gated = gated
	return f, true, nil
}
