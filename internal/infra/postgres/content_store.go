package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-service/internal/domain"
)

// ContentStore reads questions and answer options from Postgres.
type ContentStore struct {
	pool *pgxpool.Pool
}

func NewContentStore(pool *pgxpool.Pool) *ContentStore {
	return &ContentStore{pool: pool}
}

// RandomQuestions lets Postgres sample the category. A category id that is not
// a number cannot match the BIGINT column, so it returns no rows without a query.
func (s *ContentStore) RandomQuestions(ctx context.Context, categoryID string, limit int) ([]domain.Question, error) {
	category, err := strconv.ParseInt(categoryID, 10, 64)
	if err != nil {
		return []domain.Question{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT question_id, question_text, category_id
		FROM questions
		WHERE category_id = $1
		ORDER BY random()
		LIMIT $2`, category, limit)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	questions := []domain.Question{}
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.CategoryID); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return questions, nil
}

func (s *ContentStore) OptionsByQuestionIDs(ctx context.Context, questionIDs []int64) ([]domain.Option, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT option_id, question_id, option_text, marks
		FROM answers
		WHERE question_id = ANY($1)
		ORDER BY option_id`, questionIDs)
	if err != nil {
		return nil, fmt.Errorf("query options by question: %w", err)
	}
	return scanOptions(rows)
}

func (s *ContentStore) OptionsByIDs(ctx context.Context, optionIDs []int64) ([]domain.Option, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT option_id, question_id, option_text, marks
		FROM answers
		WHERE option_id = ANY($1)`, optionIDs)
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	return scanOptions(rows)
}

func scanOptions(rows pgx.Rows) ([]domain.Option, error) {
	defer rows.Close()

	var options []domain.Option
	for rows.Next() {
		var opt domain.Option
		if err := rows.Scan(&opt.ID, &opt.QuestionID, &opt.Text, &opt.Marks); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options: %w", err)
	}
	return options, nil
}
