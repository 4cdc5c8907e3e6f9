package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"quiz-service/internal/domain"
)

// LoadContent reads a YAML content document of questions and options.
func LoadContent(path string) (domain.Content, error) {
	var content domain.Content
	data, err := os.ReadFile(path)
	if err != nil {
		return content, fmt.Errorf("read content: %w", err)
	}
	if err := yaml.Unmarshal(data, &content); err != nil {
		return content, fmt.Errorf("parse content: %w", err)
	}
	questions := make(map[int64]struct{}, len(content.Questions))
	for _, q := range content.Questions {
		questions[q.ID] = struct{}{}
	}
	for _, opt := range content.Options {
		if _, ok := questions[opt.QuestionID]; !ok {
			return content, fmt.Errorf("option %d references unknown question %d", opt.ID, opt.QuestionID)
		}
	}
	return content, nil
}
