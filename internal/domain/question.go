package domain

import (
	"math/rand"
	"strings"
)

// OptionCount is the fixed number of options per question.
const OptionCount = 4

// NormalizeQuestion validates and cleans a stored question. It returns the
// normalized copy and false when the record is unusable (missing fields,
// wrong option count, out-of-range correct index).
func NormalizeQuestion(raw Question) (Question, bool) {
	q := Question{
		ID:     strings.TrimSpace(raw.ID),
		Prompt: strings.TrimSpace(raw.Prompt),
	}
	if q.ID == "" || q.Prompt == "" {
		return Question{}, false
	}
	if len(raw.Options) != OptionCount {
		return Question{}, false
	}
	q.Options = make([]string, 0, OptionCount)
	for _, opt := range raw.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return Question{}, false
		}
		q.Options = append(q.Options, opt)
	}
	if raw.Correct < 0 || raw.Correct >= OptionCount {
		return Question{}, false
	}
	q.Correct = raw.Correct
	q.Explanation = strings.TrimSpace(raw.Explanation)
	return q, true
}

// SampleQuestions merges the given sub-pools, deduplicates by question id,
// shuffles, and draws until count normalized questions are collected.
// When one sub-pool runs short the draw tops up from the others; the only
// guarantee is exactly count unique valid questions, or ErrNoQuestions.
func SampleQuestions(pools [][]Question, count int, rnd *rand.Rand) ([]Question, error) {
	if count <= 0 {
		return nil, ErrNoQuestions
	}
	seen := make(map[string]struct{})
	merged := make([]Question, 0)
	for _, pool := range pools {
		for _, q := range pool {
			id := strings.TrimSpace(q.ID)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, q)
		}
	}
	if len(merged) < count {
		return nil, ErrNoQuestions
	}
	rnd.Shuffle(len(merged), func(i, j int) {
		merged[i], merged[j] = merged[j], merged[i]
	})
	picked := make([]Question, 0, count)
	for _, q := range merged {
		norm, ok := NormalizeQuestion(q)
		if !ok {
			continue
		}
		picked = append(picked, norm)
		if len(picked) == count {
			return picked, nil
		}
	}
	return nil, ErrNoQuestions
}
