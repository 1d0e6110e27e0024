package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ProCoderAkhil/mptcquiz/internal/domain"
)

// FileLoader reads the question catalog from a YAML file.
//
// Layout:
//
//	questions:
//	  - id: 1
//	    category: World Geography
//	    text: Which is the smallest continent?
//	    options: [Europe, Australia, Antarctica]
//	    correctOption: 1
type FileLoader struct {
	path string
}

func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

type yamlQuestion struct {
	ID            int      `yaml:"id"`
	Category      string   `yaml:"category"`
	Text          string   `yaml:"text"`
	Options       []string `yaml:"options"`
	CorrectOption int      `yaml:"correctOption"`
}

type catalogFile struct {
	Questions []yamlQuestion `yaml:"questions"`
}

func (l *FileLoader) LoadCatalog(_ context.Context) ([]domain.Question, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var parsed catalogFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	questions := make([]domain.Question, 0, len(parsed.Questions))
	for _, q := range parsed.Questions {
		question := domain.Question{
			ID:            q.ID,
			Category:      q.Category,
			Text:          q.Text,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
		}
		if !question.Valid() {
			return nil, fmt.Errorf("catalog question %d: correct option out of range", q.ID)
		}
		questions = append(questions, question)
	}
	return questions, nil
}
