package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"quiz-service/internal/domain"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID         int64  `bun:"question_id,pk"`
	Text       string `bun:"question_text"`
	CategoryID int64  `bun:"category_id"`
}

type optionRow struct {
	bun.BaseModel `bun:"table:answers"`

	ID         int64  `bun:"option_id,pk"`
	QuestionID int64  `bun:"question_id"`
	Text       string `bun:"option_text"`
	Marks      int    `bun:"marks"`
}

// Seeder upserts a content document into the questions and answers tables.
type Seeder struct {
	db *bun.DB
}

func NewSeeder(db *bun.DB) *Seeder {
	return &Seeder{db: db}
}

// Seed writes all questions and options in one transaction and advances the id sequences.
func (s *Seeder) Seed(ctx context.Context, content domain.Content) error {
	questions := make([]questionRow, 0, len(content.Questions))
	for _, q := range content.Questions {
		questions = append(questions, questionRow{ID: q.ID, Text: q.Text, CategoryID: q.CategoryID})
	}
	options := make([]optionRow, 0, len(content.Options))
	for _, o := range content.Options {
		options = append(options, optionRow{ID: o.ID, QuestionID: o.QuestionID, Text: o.Text, Marks: o.Marks})
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(questions) > 0 {
			_, err := tx.NewInsert().
				Model(&questions).
				On("CONFLICT (question_id) DO UPDATE").
				Set("question_text = EXCLUDED.question_text").
				Set("category_id = EXCLUDED.category_id").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("insert questions: %w", err)
			}
		}
		if len(options) > 0 {
			_, err := tx.NewInsert().
				Model(&options).
				On("CONFLICT (option_id) DO UPDATE").
				Set("question_id = EXCLUDED.question_id").
				Set("option_text = EXCLUDED.option_text").
				Set("marks = EXCLUDED.marks").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("insert options: %w", err)
			}
		}
		for _, seq := range []struct{ table, column string }{
			{"questions", "question_id"},
			{"answers", "option_id"},
		} {
			_, err := tx.ExecContext(ctx, fmt.Sprintf(
				`SELECT setval(pg_get_serial_sequence('%s', '%s'), COALESCE((SELECT MAX(%s) FROM %s), 0) + 1, false)`,
				seq.table, seq.column, seq.column, seq.table))
			if err != nil {
				return fmt.Errorf("advance %s sequence: %w", seq.table, err)
			}
		}
		return nil
	})
}
