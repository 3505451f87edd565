package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// QuestionKind selects the input control used for a question.
type QuestionKind string

// Question kinds.
const (
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindShortText      QuestionKind = "short_text"
	KindLongText       QuestionKind = "long_text"
	KindYesNo          QuestionKind = "yes_no"
)

// Answers accepted by yes_no questions.
const (
	AnswerYes = "Yes"
	AnswerNo  = "No"
)

// kindAliases maps the spellings used by older catalog files.
var kindAliases = map[string]QuestionKind{
	"text_short": KindShortText,
	"text_long":  KindLongText,
}

// UnmarshalJSON accepts both the canonical kind names and the legacy
// text_short/text_long spellings.
func (k *QuestionKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if alias, ok := kindAliases[s]; ok {
		*k = alias
		return nil
	}
	*k = QuestionKind(s)
	return nil
}

// Valid returns true for the four supported kinds.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindMultipleChoice, KindShortText, KindLongText, KindYesNo:
		return true
	}
	return false
}

// IsText returns true for kinds answered through a modal text field.
func (k QuestionKind) IsText() bool {
	return k == KindShortText || k == KindLongText
}

// Question is an immutable catalog entry.
type Question struct {
	Title       string       `json:"title"`
	Kind        QuestionKind `json:"type"`
	Short       string       `json:"short,omitempty"`
	Inline      bool         `json:"inline,omitempty"`
	Choices     []string     `json:"choices,omitempty"`
	MaxLength   int          `json:"max_length,omitempty"`
	Placeholder string       `json:"placeholder,omitempty"`
}

// Label returns the compact field name, falling back to the title.
func (q Question) Label() string {
	if q.Short != "" {
		return q.Short
	}
	return q.Title
}

// Validate checks that the kind-specific fields are present and consistent
// with Kind. It returns every problem found.
func (q Question) Validate() []FieldError {
	var errs []FieldError
	add := func(field, code, msg string) {
		errs = append(errs, FieldError{Field: field, Code: code, Message: msg})
	}

	if strings.TrimSpace(q.Title) == "" {
		add("title", "REQUIRED", "title is required")
	}
	if !q.Kind.Valid() {
		add("type", "INVALID", fmt.Sprintf("unknown question type %q", q.Kind))
		return errs
	}

	switch q.Kind {
	case KindMultipleChoice:
		if len(q.Choices) == 0 {
			add("choices", "REQUIRED", "multiple_choice questions need at least one choice")
		}
		seen := make(map[string]bool, len(q.Choices))
		for i, c := range q.Choices {
			if strings.TrimSpace(c) == "" {
				add(fmt.Sprintf("choices[%d]", i), "REQUIRED", "choice must not be empty")
			}
			if seen[c] {
				add(fmt.Sprintf("choices[%d]", i), "DUPLICATE", fmt.Sprintf("duplicate choice %q", c))
			}
			seen[c] = true
		}
	case KindShortText, KindLongText:
		if q.MaxLength <= 0 {
			add("max_length", "REQUIRED", "text questions need a positive max_length")
		}
		if len(q.Choices) > 0 {
			add("choices", "UNEXPECTED", "choices are only allowed on multiple_choice questions")
		}
	case KindYesNo:
		if len(q.Choices) > 0 {
			add("choices", "UNEXPECTED", "choices are only allowed on multiple_choice questions")
		}
	}
	return errs
}

// Accepts validates a candidate answer for this question. Values are never
// coerced: a choice must match exactly.
func (q Question) Accepts(value string) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError("answer must not be empty",
			FieldError{Field: "answer", Code: "REQUIRED", Message: "answer is required"})
	}

	switch q.Kind {
	case KindMultipleChoice:
		if !slices.Contains(q.Choices, value) {
			return NewValidationError(fmt.Sprintf("%q is not one of the available choices", value),
				FieldError{Field: "answer", Code: "INVALID_CHOICE", Message: "not an allowed choice"})
		}
	case KindYesNo:
		if value != AnswerYes && value != AnswerNo {
			return NewValidationError(fmt.Sprintf("%q is not Yes or No", value),
				FieldError{Field: "answer", Code: "INVALID_CHOICE", Message: "must be Yes or No"})
		}
	case KindShortText, KindLongText:
		if q.MaxLength > 0 && utf8.RuneCountInString(value) > q.MaxLength {
			return NewValidationError(fmt.Sprintf("answer is longer than %d characters", q.MaxLength),
				FieldError{Field: "answer", Code: "TOO_LONG", Message: "answer too long"})
		}
	default:
		return NewValidationError(fmt.Sprintf("unknown question type %q", q.Kind))
	}
	return nil
}

// AnsweredQuestion is a snapshot of a catalog question together with the
// submitter's answer.
type AnsweredQuestion struct {
	Question
	Answer string `json:"answer"`
}
