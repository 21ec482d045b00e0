package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
)

// PoolLoader fetches one question sub-pool from the backing bank.
type PoolLoader interface {
	ListPool(ctx context.Context, courseID string, kind domain.TemplateKind) ([]domain.Question, error)
}

// QuestionRepository caches question pools in Redis as JSON arrays at
// qbank:{courseID}:{template} and falls back to the loader on miss. Sampling
// happens per call, so cached pools stay whole and every room draws its own
// random sequence.
type QuestionRepository struct {
	client *redis.Client
	loader PoolLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader PoolLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) poolKey(courseID string, kind domain.TemplateKind) string {
	return fmt.Sprintf("qbank:%s:%s", courseID, kind)
}

// LoadQuestions implements app.QuestionSource: merged sub-pools, dedup,
// shuffle, exactly count normalized questions or domain.ErrNoQuestions.
func (r *QuestionRepository) LoadQuestions(ctx context.Context, courseID string, kind domain.TemplateKind, count int) ([]domain.Question, error) {
	pools := make([][]domain.Question, 0, 2)
	for _, sub := range kind.Pools() {
		pool, err := r.pool(ctx, courseID, sub)
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return domain.SampleQuestions(pools, count, rnd)
}

func (r *QuestionRepository) pool(ctx context.Context, courseID string, kind domain.TemplateKind) ([]domain.Question, error) {
	key := r.poolKey(courseID, kind)

	if cached, ok := r.cachedPool(ctx, key); ok {
		return cached, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cached, ok := r.cachedPool(ctx, key); ok {
			return cached, nil
		}
		pool, err := r.loader.ListPool(ctx, courseID, kind)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(pool)
		if err != nil {
			return nil, err
		}
		_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) cachedPool(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var pool []domain.Question
	if err := json.Unmarshal(raw, &pool); err != nil {
		return nil, false
	}
	return pool, true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
