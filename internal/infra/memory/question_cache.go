package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"trivia-rank-service/internal/app"
	"trivia-rank-service/internal/domain"
)

// QuestionCache caches question lookups with TTL to avoid repeated DB hits on
// the submission path. Writes go through to the backing repository and evict.
type QuestionCache struct {
	app.QuestionRepository
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand
	rndMu sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuestion
}

type cachedQuestion struct {
	question  domain.Question
	expiresAt time.Time
}

func NewQuestionCache(backing app.QuestionRepository, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		QuestionRepository: backing,
		ttl:                ttl,
		clock:              time.Now,
		rnd:                rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:              make(map[string]cachedQuestion),
	}
}

func (c *QuestionCache) Get(ctx context.Context, id string) (domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[id]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return cloneQuestion(entry.question), nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[id]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.question, nil
		}
		c.mu.RUnlock()

		q, err := c.QuestionRepository.Get(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}

		c.mu.Lock()
		c.cache[id] = cachedQuestion{
			question:  q,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return cloneQuestion(result.(domain.Question)), nil
}

func (c *QuestionCache) Update(ctx context.Context, q domain.Question) error {
	err := c.QuestionRepository.Update(ctx, q)
	c.evict(q.ID)
	return err
}

func (c *QuestionCache) Delete(ctx context.Context, id string) error {
	err := c.QuestionRepository.Delete(ctx, id)
	c.evict(id)
	return err
}

func (c *QuestionCache) evict(id string) {
	c.mu.Lock()
	delete(c.cache, id)
	c.mu.Unlock()
	c.sf.Forget(id)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
