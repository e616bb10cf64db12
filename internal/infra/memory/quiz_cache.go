package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"decaquiz-service/internal/app"
	"decaquiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuizCache caches quizzes by room code in process to avoid repeated DB hits.
// Quizzes are immutable, so entries only need to respect the TTL and the
// quiz's own expiry.
type QuizCache struct {
	app.QuizStore
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizCache(backing app.QuizStore, ttl time.Duration) *QuizCache {
	return &QuizCache{
		QuizStore: backing,
		ttl:       ttl,
		clock:     time.Now,
		cache:     make(map[string]cachedQuiz),
	}
}

func (c *QuizCache) GetQuizByCode(ctx context.Context, code string) (domain.Quiz, error) {
	if quiz, ok := c.lookup(code, c.clock()); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(code, func() (interface{}, error) {
		now := c.clock()
		if quiz, ok := c.lookup(code, now); ok {
			return quiz, nil
		}

		quiz, err := c.QuizStore.GetQuizByCode(ctx, code)
		if err != nil {
			return domain.Quiz{}, err
		}

		expiresAt := now.Add(c.ttlWithJitter())
		if quiz.ExpiresAt.Before(expiresAt) {
			expiresAt = quiz.ExpiresAt
		}
		c.mu.Lock()
		c.cache[code] = cachedQuiz{quiz: quiz, expiresAt: expiresAt}
		c.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCache) lookup(code string, now time.Time) (domain.Quiz, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[code]
	if !ok || !entry.expiresAt.After(now) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

// DeleteExpired drops cache entries past their expiry. The backing store is
// swept separately.
func (c *QuizCache) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var removed int64
	for code, entry := range c.cache {
		if !entry.expiresAt.After(now) {
			delete(c.cache, code)
			removed++
		}
	}
	return removed, nil
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
