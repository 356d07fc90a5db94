package grading

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Problem is the minimal view of a problem block needed for grading.
type Problem struct {
	Type      string
	Points    float64
	AnswerKey []string
}

// Result is the outcome of grading a single response.
type Result struct {
	Earned   float64
	Possible float64
}

// Strategy grades a single problem response.
type Strategy interface {
	Grade(ctx context.Context, p Problem, response any) (Result, error)
}

// Grader routes by problem type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, p Problem, response any) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

// NewDefaultGrader installs the built-in strategies.
func NewDefaultGrader() Grader {
	return &defaultGrader{
		strategies: map[string]Strategy{
			"mcq_single": exactStrategy{},
			"true_false": exactStrategy{},
			"numeric":    numericStrategy{},
			"short_word": shortWordStrategy{maxEdit: 1},
		},
	}
}

func (g *defaultGrader) Grade(ctx context.Context, p Problem, response any) (Result, error) {
	s, ok := g.strategies[p.Type]
	if !ok {
		// unknown type: worth zero until graded by hand
		return Result{Possible: p.Points}, nil
	}
	return s.Grade(ctx, p, response)
}

type exactStrategy struct{}

func (exactStrategy) Grade(_ context.Context, p Problem, response any) (Result, error) {
	res := Result{Possible: p.Points}
	s, ok := response.(string)
	if !ok {
		return res, errors.New("response must be string")
	}
	for _, k := range p.AnswerKey {
		if s == k {
			res.Earned = p.Points
			break
		}
	}
	return res, nil
}

// numericStrategy accepts exact match or tolerance hints in the key:
//
//	AnswerKey: ["3.14159", "tol=0.01"]   // absolute tolerance
//	AnswerKey: ["100", "reltol=0.05"]    // 5% relative tolerance
type numericStrategy struct{}

func (numericStrategy) Grade(_ context.Context, p Problem, response any) (Result, error) {
	res := Result{Possible: p.Points}
	s, ok := response.(string)
	if !ok {
		return res, errors.New("response must be string")
	}
	if len(p.AnswerKey) == 0 {
		return res, nil
	}
	target := p.AnswerKey[0]
	if strings.TrimSpace(s) == target {
		res.Earned = p.Points
		return res, nil
	}
	rv, err1 := strconv.ParseFloat(strings.TrimSpace(s), 64)
	tv, err2 := strconv.ParseFloat(target, 64)
	if err1 != nil || err2 != nil {
		return res, nil
	}
	absTol, relTol := parseTolerances(p.AnswerKey[1:])
	diff := math.Abs(rv - tv)
	if (absTol >= 0 && diff <= absTol) || (relTol >= 0 && diff <= relTol*math.Abs(tv)) || diff == 0 {
		res.Earned = p.Points
	}
	return res, nil
}

func parseTolerances(keys []string) (absTol, relTol float64) {
	absTol, relTol = -1, -1
	for _, k := range keys {
		k = strings.TrimSpace(strings.ToLower(k))
		if v, ok := strings.CutPrefix(k, "tol="); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				absTol = f
			}
		}
		if v, ok := strings.CutPrefix(k, "reltol="); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				relTol = f
			}
		}
	}
	return
}

type shortWordStrategy struct{ maxEdit int }

func (s shortWordStrategy) Grade(_ context.Context, p Problem, response any) (Result, error) {
	res := Result{Possible: p.Points}
	str, ok := response.(string)
	if !ok {
		return res, errors.New("response must be string")
	}
	norm := normalize(str)
	for _, k := range p.AnswerKey {
		nk := normalize(k)
		if nk == norm {
			res.Earned = p.Points
			return res, nil
		}
		if s.maxEdit > 0 && levenshtein(nk, norm) <= s.maxEdit {
			res.Earned = p.Points * 0.5
		}
	}
	return res, nil
}

// normalize casefolds and strips punctuation and repeated whitespace.
func normalize(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsPunct(r):
		default:
			if space && len(out) > 0 {
				out = append(out, ' ')
			}
			space = false
			out = append(out, unicode.ToLower(r))
		}
	}
	return string(out)
}

// levenshtein computes edit distance with unit costs.
func levenshtein(a, b string) int {
	ar, br := []rune(a), []rune(b)
	n, m := len(ar), len(br)
	if n == 0 || m == 0 {
		return n + m
	}
	dp := make([]int, m+1)
	for j := 0; j <= m; j++ {
		dp[j] = j
	}
	for i := 1; i <= n; i++ {
		prev := dp[0]
		dp[0] = i
		for j := 1; j <= m; j++ {
			tmp := dp[j]
			cost := 0
			if ar[i-1] != br[j-1] {
				cost = 1
			}
			dp[j] = min(dp[j]+1, min(dp[j-1]+1, prev+cost))
			prev = tmp
		}
	}
	return dp[m]
}
