package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"decaquiz-service/internal/app"
	"decaquiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizCache caches quizzes in Redis by room code and falls back to the backing
// store on a miss. Entries are stored as: SET quizcache:{CODE} {quiz JSON}
type QuizCache struct {
	app.QuizStore
	client *redis.Client
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
}

func NewQuizCache(client *redis.Client, backing app.QuizStore, ttl time.Duration) *QuizCache {
	return &QuizCache{
		QuizStore: backing,
		client:    client,
		ttl:       ttl,
		clock:     time.Now,
	}
}

func (c *QuizCache) GetQuizByCode(ctx context.Context, code string) (domain.Quiz, error) {
	if quiz, ok := c.cached(ctx, code); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(code, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := c.cached(ctx, code); ok {
			return quiz, nil
		}

		quiz, err := c.QuizStore.GetQuizByCode(ctx, code)
		if err != nil {
			return domain.Quiz{}, err
		}

		ttl := c.ttlWithJitter()
		if untilExpiry := quiz.ExpiresAt.Sub(c.clock()); untilExpiry < ttl {
			ttl = untilExpiry
		}
		if ttl > 0 {
			if data, err := json.Marshal(quiz); err == nil {
				_ = c.client.Set(ctx, c.key(code), data, ttl).Err()
			}
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCache) cached(ctx context.Context, code string) (domain.Quiz, bool) {
	data, err := c.client.Get(ctx, c.key(code)).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (c *QuizCache) key(code string) string {
	return "quizcache:" + code
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
