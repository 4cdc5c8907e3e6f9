package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-service/internal/config"
	"quiz-service/internal/infra/memory"
	"quiz-service/internal/infra/postgres"
	"quiz-service/internal/logger"
)

// NewSeedCmd loads a YAML content document into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load questions and options from a YAML file into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Env)
			if err != nil {
				return err
			}
			defer log.Sync()

			if file == "" {
				file = cfg.Quiz.ContentPath
			}
			if file == "" {
				return fmt.Errorf("no content file: pass --file or set quiz.content_path")
			}
			content, err := memory.LoadContent(file)
			if err != nil {
				return err
			}

			if err := runMigrationsWithConfig(cmd.Context(), cfg, log); err != nil {
				return err
			}
			db := postgres.OpenBun(cfg.Postgres.URL)
			defer db.Close()
			if err := postgres.NewSeeder(db).Seed(cmd.Context(), content); err != nil {
				return err
			}
			log.Info("content seeded",
				zap.String("file", file),
				zap.Int("questions", len(content.Questions)),
				zap.Int("options", len(content.Options)),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to content YAML (default quiz.content_path)")
	return cmd
}
