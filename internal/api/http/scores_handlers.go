package http

import (
	"encoding/json"

	nethttp "net/http"

	authmw "github.com/mind-engage/mindengage-courseware/internal/auth/middleware"
	"github.com/mind-engage/mindengage-courseware/internal/blocks"
	"github.com/mind-engage/mindengage-courseware/internal/contentsource"
	"github.com/mind-engage/mindengage-courseware/internal/courseevents"
	"github.com/mind-engage/mindengage-courseware/internal/grading"
	"github.com/mind-engage/mindengage-courseware/internal/rbac"
)

// SubmitResponseHandler grades one problem response for the caller and
// records the score, which in turn re-evaluates any gating prerequisite
// above the problem.
//
//	POST /responses  { "block_id": "...", "response": ... }
func SubmitResponseHandler(rec *courseevents.Recorder, provider contentsource.Provider) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		if sub == "" {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		var req struct {
			BlockID  string `json:"block_id"`
			Response any    `json:"response"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		k, err := blocks.ParseBlockKey(req.BlockID)
		if err != nil || k.Type != blocks.TypeProblem {
			nethttp.Error(w, "bad block id", nethttp.StatusBadRequest)
			return
		}
		tree, err := provider.CourseTree(r.Context(), k.Course)
		if err != nil {
			nethttp.Error(w, "course not found", nethttp.StatusNotFound)
			return
		}
		if !tree.Has(k) {
			nethttp.Error(w, "block not found", nethttp.StatusNotFound)
			return
		}
		res, err := rec.SubmitResponse(r.Context(), sub, k, problemFromTree(tree, k), req.Response)
		if err != nil {
			nethttp.Error(w, "grading failed", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"earned":   res.Earned,
			"possible": res.Possible,
		})
	}
}

// RecordScoreHandler accepts an externally computed score, teacher-side.
//
//	POST /scores  { "user_id": "...", "block_id": "...", "earned": 1, "possible": 1 }
func RecordScoreHandler(rec *courseevents.Recorder) nethttp.HandlerFunc {
	checker := rbac.NewChecker(nil)
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		if sub == "" {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		var req struct {
			UserID   string  `json:"user_id"`
			BlockID  string  `json:"block_id"`
			Earned   float64 `json:"earned"`
			Possible float64 `json:"possible"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		userID := req.UserID
		if userID == "" {
			userID = sub
		}
		if userID != sub && !checker.Has(rbac.RoleFromContext(r.Context()), "gating:edit") {
			nethttp.Error(w, "forbidden", nethttp.StatusForbidden)
			return
		}
		k, err := blocks.ParseBlockKey(req.BlockID)
		if err != nil {
			nethttp.Error(w, "bad block id", nethttp.StatusBadRequest)
			return
		}
		if err := rec.RecordScore(r.Context(), userID, k, grading.Score{Earned: req.Earned, Possible: req.Possible}); err != nil {
			nethttp.Error(w, "record failed", nethttp.StatusInternalServerError)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

func problemFromTree(tree *blocks.BlockStructure, k blocks.BlockKey) grading.Problem {
	p := grading.Problem{Type: "mcq_single", Points: 1}
	if v, ok := tree.XBlockField(k, "problem_type").(string); ok {
		p.Type = v
	}
	switch v := tree.XBlockField(k, "points").(type) {
	case float64:
		if v > 0 {
			p.Points = v
		}
	case int:
		if v > 0 {
			p.Points = float64(v)
		}
	}
	switch v := tree.XBlockField(k, "answer_key").(type) {
	case []string:
		p.AnswerKey = v
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				p.AnswerKey = append(p.AnswerKey, s)
			}
		}
	}
	return p
}
