package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"quiz-service/internal/domain"
)

// ContentStore abstracts where questions and options live (Postgres, memory, cached).
type ContentStore interface {
	RandomQuestions(ctx context.Context, categoryID string, limit int) ([]domain.Question, error)
	OptionsByQuestionIDs(ctx context.Context, questionIDs []int64) ([]domain.Option, error)
	OptionsByIDs(ctx context.Context, optionIDs []int64) ([]domain.Option, error)
}

// TotalMode selects how the denominator of a score is derived.
type TotalMode string

const (
	// TotalFixed assumes every question is worth MaxMarksPerQuestion.
	TotalFixed TotalMode = "fixed"
	// TotalQuestionMax sums the highest option marks of each answered question.
	TotalQuestionMax TotalMode = "question_max"
)

const (
	DefaultSetSize             = 10
	DefaultMaxMarksPerQuestion = 4
)

// QuizOptions tunes question assembly and scoring.
type QuizOptions struct {
	SetSize             int
	MaxMarksPerQuestion int
	TotalMode           TotalMode
}

// QuizService contains the quiz use cases: assembling question sets and scoring submissions.
type QuizService struct {
	content ContentStore
	opts    QuizOptions
}

// NewQuizService fills unset options with defaults and rejects an unknown total mode.
func NewQuizService(content ContentStore, opts QuizOptions) (*QuizService, error) {
	if opts.SetSize <= 0 {
		opts.SetSize = DefaultSetSize
	}
	if opts.MaxMarksPerQuestion <= 0 {
		opts.MaxMarksPerQuestion = DefaultMaxMarksPerQuestion
	}
	switch opts.TotalMode {
	case "":
		opts.TotalMode = TotalFixed
	case TotalFixed, TotalQuestionMax:
	default:
		return nil, fmt.Errorf("unknown total mode %q", opts.TotalMode)
	}
	return &QuizService{content: content, opts: opts}, nil
}

// GetQuestionSet samples up to SetSize questions of a category and attaches their options.
// An unknown category yields an empty, non-nil slice.
func (s *QuizService) GetQuestionSet(ctx context.Context, categoryID string) ([]domain.QuestionWithOptions, error) {
	questions, err := s.content.RandomQuestions(ctx, categoryID, s.opts.SetSize)
	if err != nil {
		return nil, err
	}
	set := make([]domain.QuestionWithOptions, 0, len(questions))
	if len(questions) == 0 {
		return set, nil
	}

	ids := make([]int64, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	options, err := s.content.OptionsByQuestionIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byQuestion := make(map[int64][]domain.OptionView, len(questions))
	for _, opt := range options {
		byQuestion[opt.QuestionID] = append(byQuestion[opt.QuestionID], domain.OptionView{
			ID:    opt.ID,
			Text:  opt.Text,
			Marks: opt.Marks,
		})
	}

	for _, q := range questions {
		views := byQuestion[q.ID]
		if views == nil {
			views = []domain.OptionView{}
		}
		set = append(set, domain.QuestionWithOptions{
			ID:         q.ID,
			Question:   q.Text,
			CategoryID: q.CategoryID,
			Options:    views,
		})
	}
	return set, nil
}

// ScoreSubmission sums the marks of every selected option. A repeated option counts each time
// it is submitted; unknown options count zero. An empty submission scores 0 of 0 at "0.00".
func (s *QuizService) ScoreSubmission(ctx context.Context, answers []domain.Answer) (domain.ScoreResult, error) {
	if len(answers) == 0 {
		return domain.ScoreResult{Percentage: percentage(0, 0)}, nil
	}

	optionIDs := make([]int64, 0, len(answers))
	seen := make(map[int64]struct{}, len(answers))
	for _, a := range answers {
		if a.SelectedOptionID <= 0 {
			return domain.ScoreResult{}, fmt.Errorf("%w: selected_option_id must be positive", domain.ErrInvalidSubmission)
		}
		if _, ok := seen[a.SelectedOptionID]; ok {
			continue
		}
		seen[a.SelectedOptionID] = struct{}{}
		optionIDs = append(optionIDs, a.SelectedOptionID)
	}

	selected, err := s.content.OptionsByIDs(ctx, optionIDs)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	marks := make(map[int64]int, len(selected))
	for _, opt := range selected {
		marks[opt.ID] = opt.Marks
	}

	score := 0
	for _, a := range answers {
		score += marks[a.SelectedOptionID]
	}

	total, err := s.total(ctx, answers)
	if err != nil {
		return domain.ScoreResult{}, err
	}

	return domain.ScoreResult{
		Score:      score,
		Total:      total,
		Percentage: percentage(score, total),
	}, nil
}

func (s *QuizService) total(ctx context.Context, answers []domain.Answer) (int, error) {
	if s.opts.TotalMode != TotalQuestionMax {
		return len(answers) * s.opts.MaxMarksPerQuestion, nil
	}

	questionIDs := make([]int64, 0, len(answers))
	seen := make(map[int64]struct{}, len(answers))
	for _, a := range answers {
		if _, ok := seen[a.QuestionID]; ok {
			continue
		}
		seen[a.QuestionID] = struct{}{}
		questionIDs = append(questionIDs, a.QuestionID)
	}

	options, err := s.content.OptionsByQuestionIDs(ctx, questionIDs)
	if err != nil {
		return 0, err
	}
	best := make(map[int64]int, len(questionIDs))
	for _, opt := range options {
		if cur, ok := best[opt.QuestionID]; !ok || opt.Marks > cur {
			best[opt.QuestionID] = opt.Marks
		}
	}

	total := 0
	for _, a := range answers {
		total += best[a.QuestionID]
	}
	return total, nil
}

// percentage renders score/total*100 with two decimals; a zero total renders "0.00".
func percentage(score, total int) string {
	if total == 0 {
		return decimal.Zero.StringFixed(2)
	}
	return decimal.NewFromInt(int64(score)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		StringFixed(2)
}
