package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"notiplay/internal/app"
	"notiplay/internal/domain"
)

// QuizCache is a read-through TTL cache in front of a quiz repository. Absence,
// errors and empty question lists are never cached.
type QuizCache struct {
	source app.QuizRepository
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu        sync.RWMutex
	quizzes   map[string]cachedEntry[domain.Quiz]
	questions map[string]cachedEntry[[]domain.Question]
}

type cachedEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func NewQuizCache(source app.QuizRepository, ttl time.Duration) *QuizCache {
	return &QuizCache{
		source:    source,
		ttl:       ttl,
		clock:     time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		quizzes:   make(map[string]cachedEntry[domain.Quiz]),
		questions: make(map[string]cachedEntry[[]domain.Question]),
	}
}

func (c *QuizCache) QuizForContent(ctx context.Context, contentID string) (domain.Quiz, error) {
	return readThrough(c, c.quizzes, "content:"+contentID, contentID, func() (domain.Quiz, error) {
		return c.source.QuizForContent(ctx, contentID)
	}, func(domain.Quiz) bool { return true })
}

func (c *QuizCache) Questions(ctx context.Context, quizID string) ([]domain.Question, error) {
	qs, err := readThrough(c, c.questions, "questions:"+quizID, quizID, func() ([]domain.Question, error) {
		return c.source.Questions(ctx, quizID)
	}, func(qs []domain.Question) bool { return len(qs) > 0 })
	if err != nil {
		return nil, err
	}
	return copyQuestions(qs), nil
}

func copyQuestions(qs []domain.Question) []domain.Question {
	out := make([]domain.Question, len(qs))
	for i, q := range qs {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}

func readThrough[T any](c *QuizCache, cache map[string]cachedEntry[T], flightKey, key string, load func() (T, error), cacheable func(T) bool) (T, error) {
	if v, ok := lookup(c, cache, key); ok {
		return v, nil
	}

	result, err, _ := c.sf.Do(flightKey, func() (interface{}, error) {
		// Re-check in case another caller filled it.
		if v, ok := lookup(c, cache, key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil || !cacheable(v) {
			return v, err
		}
		c.mu.Lock()
		cache[key] = cachedEntry[T]{value: v, expiresAt: c.clock().Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func lookup[T any](c *QuizCache, cache map[string]cachedEntry[T], key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := cache[key]
	if ok && entry.expiresAt.After(c.clock()) {
		return entry.value, true
	}
	var zero T
	return zero, false
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
