// Package courseevents records scoring events and drives prerequisite
// re-evaluation. Submitting a graded response is the only thing that
// mutates fulfillment state; the filtering path stays a pure read.
package courseevents

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-courseware/internal/blocks"
	"github.com/mind-engage/mindengage-courseware/internal/gating"
	"github.com/mind-engage/mindengage-courseware/internal/grading"
)

// ScoreEvent is one recorded scoring occurrence on a block.
type ScoreEvent struct {
	ID        string           `json:"id"`
	Course    blocks.CourseKey `json:"course"`
	Block     blocks.BlockKey  `json:"block"`
	UserID    string           `json:"user_id"`
	Earned    float64          `json:"earned"`
	Possible  float64          `json:"possible"`
	CreatedAt int64            `json:"created_at"`
}

// EventRepo appends score events to durable storage.
type EventRepo interface {
	Append(ctx context.Context, e ScoreEvent) error
}

// SQLEventRepo writes score events to the score_events table.
type SQLEventRepo struct{ db *sql.DB }

func NewSQLEventRepo(db *sql.DB) *SQLEventRepo { return &SQLEventRepo{db: db} }

func (r *SQLEventRepo) Append(ctx context.Context, e ScoreEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO score_events (id, course_id, block_id, user_id, data, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.Course.String(), e.Block.String(), e.UserID, string(data), e.CreatedAt)
	return err
}

// NopEventRepo discards events; used when no database is configured.
type NopEventRepo struct{}

func (NopEventRepo) Append(context.Context, ScoreEvent) error { return nil }

// Recorder grades submitted responses, persists the score, logs the
// event, and synchronously fires prerequisite re-evaluation so gated
// content appears as soon as the qualifying score lands.
type Recorder struct {
	grader grading.Grader
	scores grading.ScoreStore
	events EventRepo
	gates  *gating.Service
}

func NewRecorder(grader grading.Grader, scores grading.ScoreStore, events EventRepo, gates *gating.Service) *Recorder {
	if events == nil {
		events = NopEventRepo{}
	}
	return &Recorder{grader: grader, scores: scores, events: events, gates: gates}
}

// SubmitResponse grades one problem response for the user and records
// the outcome. The problem definition comes from the caller, which holds
// the authoritative content.
func (r *Recorder) SubmitResponse(ctx context.Context, userID string, block blocks.BlockKey, p grading.Problem, response any) (grading.Result, error) {
	res, err := r.grader.Grade(ctx, p, response)
	if err != nil {
		return grading.Result{}, fmt.Errorf("courseevents: grade user=%s block=%s: %w", userID, block, err)
	}
	if err := r.RecordScore(ctx, userID, block, grading.Score{Earned: res.Earned, Possible: res.Possible}); err != nil {
		return grading.Result{}, err
	}
	return res, nil
}

// RecordScore stores a score that was computed elsewhere and triggers
// re-evaluation. Safe to call repeatedly: evaluation is idempotent.
func (r *Recorder) RecordScore(ctx context.Context, userID string, block blocks.BlockKey, s grading.Score) error {
	if err := r.scores.RecordScore(ctx, userID, block, s); err != nil {
		return err
	}
	ev := ScoreEvent{
		ID:        uuid.NewString(),
		Course:    block.Course,
		Block:     block,
		UserID:    userID,
		Earned:    s.Earned,
		Possible:  s.Possible,
		CreatedAt: time.Now().Unix(),
	}
	if err := r.events.Append(ctx, ev); err != nil {
		return fmt.Errorf("courseevents: append event user=%s block=%s: %w", userID, block, err)
	}
	return r.gates.EvaluatePrerequisite(ctx, block.Course, block, userID)
}
