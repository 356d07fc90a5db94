package http

import (
	"encoding/json"
	"errors"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-courseware/internal/blocks"
	"github.com/mind-engage/mindengage-courseware/internal/gating"
)

// Author-facing gating CRUD. All endpoints take canonical block-key
// strings; anything unparsable is a 400.

func AddPrerequisiteHandler(svc *gating.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		course := blocks.CourseKey(chi.URLParam(r, "courseID"))
		var req struct {
			BlockID string `json:"block_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		k, err := blocks.ParseBlockKey(req.BlockID)
		if err != nil {
			nethttp.Error(w, "bad block id", nethttp.StatusBadRequest)
			return
		}
		if err := svc.AddPrerequisite(r.Context(), course, k); err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

func RemovePrerequisiteHandler(svc *gating.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		course := blocks.CourseKey(chi.URLParam(r, "courseID"))
		k, err := blocks.ParseBlockKey(r.URL.Query().Get("block_id"))
		if err != nil {
			nethttp.Error(w, "bad block id", nethttp.StatusBadRequest)
			return
		}
		if err := svc.RemovePrerequisite(r.Context(), course, k); err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

func ListPrerequisitesHandler(svc *gating.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		course := blocks.CourseKey(chi.URLParam(r, "courseID"))
		keys, err := svc.ListPrerequisites(r.Context(), course)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			out = append(out, k.String())
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"prerequisites": out})
	}
}

func SetRequiredContentHandler(svc *gating.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		course := blocks.CourseKey(chi.URLParam(r, "courseID"))
		var req struct {
			GatedID  string  `json:"gated_id"`
			GatingID string  `json:"gating_id"`
			MinScore float64 `json:"min_score"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		gated, err := blocks.ParseBlockKey(req.GatedID)
		if err != nil {
			nethttp.Error(w, "bad gated id", nethttp.StatusBadRequest)
			return
		}
		gatingKey, err := blocks.ParseBlockKey(req.GatingID)
		if err != nil {
			nethttp.Error(w, "bad gating id", nethttp.StatusBadRequest)
			return
		}
		err = svc.SetRequiredContent(r.Context(), course, gated, gatingKey, req.MinScore)
		if err != nil {
			if errors.Is(err, gating.ErrNotFound) {
				nethttp.Error(w, "gating block is not a registered prerequisite", nethttp.StatusConflict)
				return
			}
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}
