package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"trivia-rank-service/internal/app"
	"trivia-rank-service/internal/domain"
)

// QuestionCache caches questions in Redis and falls back to the backing
// repository on a miss. Each question is one hash:
// HSET trivia:question:{id} prompt .. options <json> difficulty .. points .. active ..
type QuestionCache struct {
	app.QuestionRepository
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, backing app.QuestionRepository, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		QuestionRepository: backing,
		client:             client,
		ttl:                ttl,
		rnd:                rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) Get(ctx context.Context, id string) (domain.Question, error) {
	if q, ok := c.fromCache(ctx, id); ok {
		return q, nil
	}

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		// Another caller may have filled the cache while we waited.
		if q, ok := c.fromCache(ctx, id); ok {
			return q, nil
		}
		q, err := c.QuestionRepository.Get(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}
		c.store(ctx, q)
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *QuestionCache) Update(ctx context.Context, q domain.Question) error {
	err := c.QuestionRepository.Update(ctx, q)
	c.evict(ctx, q.ID)
	return err
}

func (c *QuestionCache) Delete(ctx context.Context, id string) error {
	err := c.QuestionRepository.Delete(ctx, id)
	c.evict(ctx, id)
	return err
}

func (c *QuestionCache) key(id string) string {
	return "trivia:question:" + id
}

func (c *QuestionCache) fromCache(ctx context.Context, id string) (domain.Question, bool) {
	fields, err := c.client.HGetAll(ctx, c.key(id)).Result()
	if err != nil || len(fields) == 0 {
		return domain.Question{}, false
	}
	q, err := decodeQuestion(id, fields)
	if err != nil {
		return domain.Question{}, false
	}
	return q, true
}

func (c *QuestionCache) store(ctx context.Context, q domain.Question) {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return
	}
	key := c.key(q.ID)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key,
		"prompt", q.Prompt,
		"options", string(opts),
		"difficulty", q.Difficulty,
		"points", q.Points,
		"category", q.Category,
		"active", strconv.FormatBool(q.Active),
		"createdAt", q.CreatedAt.UnixNano(),
		"updatedAt", q.UpdatedAt.UnixNano(),
	)
	if ttl := c.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	// best effort: a failed write only costs a later miss
	_, _ = pipe.Exec(ctx)
}

func (c *QuestionCache) evict(ctx context.Context, id string) {
	c.sf.Forget(id)
	_ = c.client.Del(ctx, c.key(id)).Err()
}

func decodeQuestion(id string, fields map[string]string) (domain.Question, error) {
	q := domain.Question{
		ID:         id,
		Prompt:     fields["prompt"],
		Difficulty: fields["difficulty"],
		Category:   fields["category"],
	}
	if err := json.Unmarshal([]byte(fields["options"]), &q.Options); err != nil {
		return domain.Question{}, err
	}
	var err error
	if q.Points, err = strconv.Atoi(fields["points"]); err != nil {
		return domain.Question{}, err
	}
	if q.Active, err = strconv.ParseBool(fields["active"]); err != nil {
		return domain.Question{}, err
	}
	created, err := strconv.ParseInt(fields["createdAt"], 10, 64)
	if err != nil {
		return domain.Question{}, err
	}
	updated, err := strconv.ParseInt(fields["updatedAt"], 10, 64)
	if err != nil {
		return domain.Question{}, err
	}
	q.CreatedAt = time.Unix(0, created).UTC()
	q.UpdatedAt = time.Unix(0, updated).UTC()
	return q, nil
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
