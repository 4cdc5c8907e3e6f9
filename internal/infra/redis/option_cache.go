package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-service/internal/app"
	"quiz-service/internal/domain"
)

// OptionCache caches each question's options in Redis and falls back to the wrapped store on miss.
// Options are stored as: SET quiz:question:{questionID}:options <json array>
// RandomQuestions and OptionsByIDs pass through to the wrapped store.
type OptionCache struct {
	app.ContentStore
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewOptionCache(client *redis.Client, store app.ContentStore, ttl time.Duration) *OptionCache {
	return &OptionCache{
		ContentStore: store,
		client:       client,
		ttl:          ttl,
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *OptionCache) OptionsByQuestionIDs(ctx context.Context, questionIDs []int64) ([]domain.Option, error) {
	ids := unique(questionIDs)
	if len(ids) == 0 {
		return nil, nil
	}

	hits, missing := c.lookup(ctx, ids)
	if len(missing) == 0 {
		return flatten(ids, hits), nil
	}

	result, err, _ := c.sf.Do(flightKey(missing), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		filled, stillMissing := c.lookup(ctx, missing)
		if len(stillMissing) == 0 {
			return filled, nil
		}

		options, err := c.ContentStore.OptionsByQuestionIDs(ctx, stillMissing)
		if err != nil {
			return nil, err
		}
		grouped := make(map[int64][]domain.Option, len(stillMissing))
		for _, opt := range options {
			grouped[opt.QuestionID] = append(grouped[opt.QuestionID], opt)
		}

		ttl := c.ttlWithJitter()
		pipe := c.client.Pipeline()
		for _, id := range stillMissing {
			payload, err := json.Marshal(nonNil(grouped[id]))
			if err != nil {
				return nil, fmt.Errorf("encode options: %w", err)
			}
			pipe.Set(ctx, c.key(id), payload, ttl)
			filled[id] = grouped[id]
		}
		// best-effort; a failed write only costs a reload
		_, _ = pipe.Exec(ctx)
		return filled, nil
	})
	if err != nil {
		return nil, err
	}

	for id, opts := range result.(map[int64][]domain.Option) {
		hits[id] = opts
	}
	return flatten(ids, hits), nil
}

// lookup treats Redis errors as misses so the wrapped store still answers.
func (c *OptionCache) lookup(ctx context.Context, ids []int64) (map[int64][]domain.Option, []int64) {
	hits := make(map[int64][]domain.Option, len(ids))
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return hits, ids
	}

	var missing []int64
	for i, id := range ids {
		raw, ok := values[i].(string)
		if !ok {
			missing = append(missing, id)
			continue
		}
		var opts []domain.Option
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			missing = append(missing, id)
			continue
		}
		hits[id] = opts
	}
	return hits, missing
}

func (c *OptionCache) key(questionID int64) string {
	return "quiz:question:" + strconv.FormatInt(questionID, 10) + ":options"
}

func (c *OptionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func unique(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func flatten(ids []int64, byQuestion map[int64][]domain.Option) []domain.Option {
	var out []domain.Option
	for _, id := range ids {
		out = append(out, byQuestion[id]...)
	}
	return out
}

func nonNil(opts []domain.Option) []domain.Option {
	if opts == nil {
		return []domain.Option{}
	}
	return opts
}

func flightKey(ids []int64) string {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
