// Package prompts holds the Ukrainian prompt templates sent to the model.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Template names.
const (
	BlogTopics   = "blog_topics"
	BlogPost     = "blog_post"
	TaskTopics   = "task_topics"
	TaskPost     = "task_post"
	QuizTopics   = "quiz_topics"
	QuizQuestion = "quiz_question"
	QuizPost     = "quiz_post"
	Quote        = "quote"
	Story        = "story"
)

//go:embed default.yaml
var defaultYAML []byte

// Data is what templates can refer to.
type Data struct {
	Count     int
	Topic     string
	Question  string
	Headlines []string
}

// Set is a parsed collection of templates.
type Set struct {
	templates map[string]*template.Template
}

// Default returns the built-in templates.
func Default() (*Set, error) {
	return parse(defaultYAML, nil)
}

// Load returns the built-in templates overridden by the entries of the YAML
// file at path. An empty path yields the defaults.
func Load(path string) (*Set, error) {
	base, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	return parse(data, base)
}

func parse(data []byte, base *Set) (*Set, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}

	s := &Set{templates: make(map[string]*template.Template)}
	if base != nil {
		for name, t := range base.templates {
			s.templates[name] = t
		}
	}
	for name, text := range raw {
		t, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("prompt %q: %w", name, err)
		}
		s.templates[name] = t
	}
	return s, nil
}

// Render executes the named template.
func (s *Set) Render(name string, d Data) (string, error) {
	t, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	var b strings.Builder
	if err := t.Execute(&b, d); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}
