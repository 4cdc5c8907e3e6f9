package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"quiz-service/internal/domain"
)

// ContentStore is a simple content store backed by in-memory slices (useful for tests/demos).
type ContentStore struct {
	questions []domain.Question
	options   []domain.Option

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewContentStore(content domain.Content) *ContentStore {
	return &ContentStore{
		questions: append([]domain.Question(nil), content.Questions...),
		options:   append([]domain.Option(nil), content.Options...),
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RandomQuestions samples up to limit distinct questions of the category.
// A category id that is not a number matches nothing.
func (s *ContentStore) RandomQuestions(_ context.Context, categoryID string, limit int) ([]domain.Question, error) {
	category, err := strconv.ParseInt(categoryID, 10, 64)
	if err != nil {
		return []domain.Question{}, nil
	}

	var matching []domain.Question
	for _, q := range s.questions {
		if q.CategoryID == category {
			matching = append(matching, q)
		}
	}

	s.mu.Lock()
	s.rnd.Shuffle(len(matching), func(i, j int) {
		matching[i], matching[j] = matching[j], matching[i]
	})
	s.mu.Unlock()

	if len(matching) > limit {
		matching = matching[:limit]
	}
	if matching == nil {
		matching = []domain.Question{}
	}
	return matching, nil
}

func (s *ContentStore) OptionsByQuestionIDs(_ context.Context, questionIDs []int64) ([]domain.Option, error) {
	want := toSet(questionIDs)
	var out []domain.Option
	for _, opt := range s.options {
		if _, ok := want[opt.QuestionID]; ok {
			out = append(out, opt)
		}
	}
	return out, nil
}

func (s *ContentStore) OptionsByIDs(_ context.Context, optionIDs []int64) ([]domain.Option, error) {
	want := toSet(optionIDs)
	var out []domain.Option
	for _, opt := range s.options {
		if _, ok := want[opt.ID]; ok {
			out = append(out, opt)
		}
	}
	return out, nil
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
