package memory

import (
	"context"
	"math/rand"
	"time"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
)

// PoolKey identifies one question sub-pool.
type PoolKey struct {
	CourseID string
	Template domain.TemplateKind
}

// StaticQuestionSource serves questions from fixed in-memory pools; the
// dev/test stand-in for the Postgres-backed bank.
type StaticQuestionSource struct {
	pools map[PoolKey][]domain.Question
}

func NewStaticQuestionSource(pools map[PoolKey][]domain.Question) *StaticQuestionSource {
	return &StaticQuestionSource{pools: pools}
}

func (s *StaticQuestionSource) LoadQuestions(_ context.Context, courseID string, kind domain.TemplateKind, count int) ([]domain.Question, error) {
	var pools [][]domain.Question
	for _, sub := range kind.Pools() {
		pools = append(pools, s.pools[PoolKey{CourseID: courseID, Template: sub}])
	}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return domain.SampleQuestions(pools, count, rnd)
}
