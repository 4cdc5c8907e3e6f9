package memory

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-service/internal/app"
	"quiz-service/internal/domain"
)

// OptionCache caches options per question with TTL to avoid repeated DB hits.
// Questions and options are immutable, so entries never need invalidation.
// RandomQuestions and OptionsByIDs pass through to the wrapped store.
type OptionCache struct {
	app.ContentStore
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand
	rndMu sync.Mutex

	mu    sync.RWMutex
	cache map[int64]cachedOptions
}

type cachedOptions struct {
	options   []domain.Option
	expiresAt time.Time
}

func NewOptionCache(store app.ContentStore, ttl time.Duration) *OptionCache {
	return &OptionCache{
		ContentStore: store,
		ttl:          ttl,
		clock:        time.Now,
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:        make(map[int64]cachedOptions),
	}
}

func (c *OptionCache) OptionsByQuestionIDs(ctx context.Context, questionIDs []int64) ([]domain.Option, error) {
	hits, missing := c.lookup(questionIDs)
	if len(missing) == 0 {
		return flatten(questionIDs, hits), nil
	}

	result, err, _ := c.sf.Do(flightKey(missing), func() (interface{}, error) {
		// Re-check in case another caller filled it.
		filled, stillMissing := c.lookup(missing)
		if len(stillMissing) == 0 {
			return filled, nil
		}
		options, err := c.ContentStore.OptionsByQuestionIDs(ctx, stillMissing)
		if err != nil {
			return nil, err
		}
		grouped := groupByQuestion(options)
		c.store(stillMissing, grouped)
		for _, id := range stillMissing {
			filled[id] = grouped[id]
		}
		return filled, nil
	})
	if err != nil {
		return nil, err
	}

	for id, opts := range result.(map[int64][]domain.Option) {
		hits[id] = opts
	}
	return flatten(questionIDs, hits), nil
}

func (c *OptionCache) lookup(questionIDs []int64) (map[int64][]domain.Option, []int64) {
	now := c.clock()
	hits := make(map[int64][]domain.Option, len(questionIDs))
	var missing []int64
	queued := make(map[int64]struct{})

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range questionIDs {
		if entry, ok := c.cache[id]; ok && entry.expiresAt.After(now) {
			hits[id] = entry.options
			continue
		}
		if _, ok := queued[id]; !ok {
			queued[id] = struct{}{}
			missing = append(missing, id)
		}
	}
	return hits, missing
}

func (c *OptionCache) store(questionIDs []int64, grouped map[int64][]domain.Option) {
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range questionIDs {
		// Questions without options are cached too, as empty entries.
		c.cache[id] = cachedOptions{
			options:   grouped[id],
			expiresAt: now.Add(c.ttlWithJitter()),
		}
	}
}

func (c *OptionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func groupByQuestion(options []domain.Option) map[int64][]domain.Option {
	grouped := make(map[int64][]domain.Option)
	for _, opt := range options {
		grouped[opt.QuestionID] = append(grouped[opt.QuestionID], opt)
	}
	return grouped
}

// flatten returns options in question order, each question's options once.
func flatten(questionIDs []int64, byQuestion map[int64][]domain.Option) []domain.Option {
	var out []domain.Option
	emitted := make(map[int64]struct{}, len(questionIDs))
	for _, id := range questionIDs {
		if _, ok := emitted[id]; ok {
			continue
		}
		emitted[id] = struct{}{}
		out = append(out, byQuestion[id]...)
	}
	return out
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
