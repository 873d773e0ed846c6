package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"notiplay/internal/app"
	"notiplay/internal/domain"
)

// QuizCache caches quizzes in Redis and falls back to the source on a miss.
// Headers are stored as:   HSET quiz:content:{contentID} id {quizID} title {title}
// Questions are stored as: HSET quiz:{quizID}:questions {index} {question json}
// Misses, empty quizzes and source errors are never cached.
type QuizCache struct {
	client *redis.Client
	source app.QuizRepository
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizCache(client *redis.Client, source app.QuizRepository, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) QuizForContent(ctx context.Context, contentID string) (domain.Quiz, error) {
	key := c.contentKey(contentID)
	if quiz, ok := c.cachedQuiz(ctx, key, contentID); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := c.cachedQuiz(ctx, key, contentID); ok {
			return quiz, nil
		}
		quiz, err := c.source.QuizForContent(ctx, contentID)
		if err != nil {
			return domain.Quiz{}, err
		}

		pipe := c.client.Pipeline()
		pipe.HSet(ctx, key, "id", quiz.ID, "title", quiz.Title)
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCache) Questions(ctx context.Context, quizID string) ([]domain.Question, error) {
	key := c.questionsKey(quizID)
	if questions, ok := c.cachedQuestions(ctx, key); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if questions, ok := c.cachedQuestions(ctx, key); ok {
			return questions, nil
		}
		questions, err := c.source.Questions(ctx, quizID)
		if err != nil || len(questions) == 0 {
			return questions, err
		}

		pipe := c.client.Pipeline()
		for i, q := range questions {
			raw, err := json.Marshal(q)
			if err != nil {
				return nil, errors.Wrapf(err, "encode question %s", q.ID)
			}
			pipe.HSet(ctx, key, strconv.Itoa(i), raw)
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Question(nil), result.([]domain.Question)...), nil
}

func (c *QuizCache) cachedQuiz(ctx context.Context, key, contentID string) (domain.Quiz, bool) {
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil || fields["id"] == "" {
		return domain.Quiz{}, false
	}
	return domain.Quiz{ID: fields["id"], ContentID: contentID, Title: fields["title"]}, true
}

// cachedQuestions treats a hash it cannot decode as a miss.
func (c *QuizCache) cachedQuestions(ctx context.Context, key string) ([]domain.Question, bool) {
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil || len(fields) == 0 {
		return nil, false
	}
	type indexed struct {
		index    int
		question domain.Question
	}
	rows := make([]indexed, 0, len(fields))
	for field, raw := range fields {
		i, err := strconv.Atoi(field)
		if err != nil {
			return nil, false
		}
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, false
		}
		rows = append(rows, indexed{i, q})
	}
	sort.Slice(rows, func(a, b int) bool { return rows[a].index < rows[b].index })

	out := make([]domain.Question, len(rows))
	for i, row := range rows {
		out[i] = row.question
	}
	return out, true
}

func (c *QuizCache) contentKey(contentID string) string {
	return "quiz:content:" + contentID
}

func (c *QuizCache) questionsKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:questions", quizID)
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
