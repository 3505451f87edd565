// Package catalog loads the question catalog and tag rules, validates them and
// exposes them as immutable ordered lists.
package catalog

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pitabwire/irrbot/model"
)

// Catalog is the immutable, ordered list of questions every questionnaire
// walks through.
type Catalog struct {
	questions  []model.Question
	checksum   string
	sourceFile string
}

// New builds a catalog from questions after validating them.
func New(questions []model.Question) (*Catalog, error) {
	if err := Validate(questions); err != nil {
		return nil, err
	}
	return &Catalog{questions: cloneQuestions(questions)}, nil
}

// Len returns the number of questions.
func (c *Catalog) Len() int { return len(c.questions) }

// At returns the question at index i. It panics if i is out of range.
func (c *Catalog) At(i int) model.Question {
	q := c.questions[i]
	q.Choices = append([]string(nil), q.Choices...)
	return q
}

// All returns a copy of every question in order.
func (c *Catalog) All() []model.Question { return cloneQuestions(c.questions) }

// Checksum is the SHA-256 of the source file, or "" for catalogs built in
// memory.
func (c *Catalog) Checksum() string { return c.checksum }

// SourceFile is the path the catalog was loaded from.
func (c *Catalog) SourceFile() string { return c.sourceFile }

// Validate checks every question and returns a VALIDATION_ERROR listing every
// problem, with fields prefixed by the question index.
func Validate(questions []model.Question) error {
	var details []model.FieldError
	if len(questions) == 0 {
		details = append(details, model.FieldError{
			Field: "questions", Code: "REQUIRED", Message: "catalog must contain at least one question",
		})
	}
	for i, q := range questions {
		for _, fe := range q.Validate() {
			fe.Field = fmt.Sprintf("[%d].%s", i, fe.Field)
			details = append(details, fe)
		}
	}
	if len(details) > 0 {
		return model.NewValidationError(summarize("invalid question catalog", details), details...)
	}
	return nil
}

// TagRules is the immutable list of tag derivation rules.
type TagRules struct {
	rules      []model.TagRule
	checksum   string
	sourceFile string
}

// NewTagRules builds a rule list after validating it. An empty list is valid.
func NewTagRules(rules []model.TagRule) (*TagRules, error) {
	if err := ValidateTagRules(rules); err != nil {
		return nil, err
	}
	return &TagRules{rules: append([]model.TagRule(nil), rules...)}, nil
}

// All returns a copy of the rules.
func (r *TagRules) All() []model.TagRule {
	if r == nil {
		return nil
	}
	return append([]model.TagRule(nil), r.rules...)
}

// Len returns the number of rules.
func (r *TagRules) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}

// Checksum is the SHA-256 of the source file.
func (r *TagRules) Checksum() string { return r.checksum }

// ValidateTagRules checks every rule.
func ValidateTagRules(rules []model.TagRule) error {
	var details []model.FieldError
	for i, rule := range rules {
		for _, fe := range rule.Validate() {
			fe.Field = fmt.Sprintf("[%d].%s", i, fe.Field)
			details = append(details, fe)
		}
	}
	if len(details) > 0 {
		return model.NewValidationError(summarize("invalid tag rules", details), details...)
	}
	return nil
}

// Loader reads catalog files and computes SHA-256 checksums.
type Loader struct{}

// NewLoader creates a new catalog Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadQuestions loads and validates the question catalog at path.
func (l *Loader) LoadQuestions(path string) (*Catalog, error) {
	var questions []model.Question
	checksum, err := readJSON(path, &questions)
	if err != nil {
		return nil, err
	}

	cat, err := New(questions)
	if err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	cat.checksum = checksum
	cat.sourceFile = path
	return cat, nil
}

// LoadTagRules loads and validates the tag rules at path. An empty path yields
// an empty rule list.
func (l *Loader) LoadTagRules(path string) (*TagRules, error) {
	if path == "" {
		return &TagRules{}, nil
	}

	var rules []model.TagRule
	checksum, err := readJSON(path, &rules)
	if err != nil {
		return nil, err
	}

	tr, err := NewTagRules(rules)
	if err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	tr.checksum = checksum
	tr.sourceFile = path
	return tr, nil
}

func readJSON(path string, v any) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}

	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

func summarize(prefix string, details []model.FieldError) string {
	parts := make([]string, len(details))
	for i, d := range details {
		parts[i] = d.String()
	}
	return prefix + ": " + strings.Join(parts, "; ")
}

func cloneQuestions(in []model.Question) []model.Question {
	out := make([]model.Question, len(in))
	for i, q := range in {
		q.Choices = append([]string(nil), q.Choices...)
		out[i] = q
	}
	return out
}
