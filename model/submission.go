package model

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Submission is a completed questionnaire response awaiting moderator
// disposition. It is the unit of persistence.
type Submission struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	CreatedAt int64              `json:"epoch"`
	Questions []AnsweredQuestion `json:"questions"`
}

// UnmarshalJSON accepts user_id as a string or as the integer snowflake
// older records carry. Records are always written with a string.
func (s *Submission) UnmarshalJSON(data []byte) error {
	type plain Submission
	aux := struct {
		*plain
		UserID snowflake `json:"user_id"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.UserID = string(aux.UserID)
	return nil
}

type snowflake string

func (f *snowflake) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = snowflake(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user_id must be a string or integer: %w", err)
	}
	*f = snowflake(n.String())
	return nil
}

// NewSubmissionID returns 4 random bytes, hex-encoded.
func NewSubmissionID() (string, error) {
	return randomHex(4)
}

// NewSessionID returns an identifier for an in-progress questionnaire.
func NewSessionID() (string, error) {
	return randomHex(8)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Answers returns the answer strings in question order.
func (s Submission) Answers() []string {
	answers := make([]string, len(s.Questions))
	for i, q := range s.Questions {
		answers[i] = q.Answer
	}
	return answers
}

// QuestionAt returns the answered question at index, or a VALIDATION_ERROR if
// the index is out of range.
func (s Submission) QuestionAt(index int) (AnsweredQuestion, error) {
	if index < 0 || index >= len(s.Questions) {
		return AnsweredQuestion{}, NewValidationError(
			fmt.Sprintf("question index %d out of range (0..%d)", index, len(s.Questions)-1))
	}
	return s.Questions[index], nil
}

// Clone returns a deep copy so a working copy never aliases the stored one.
func (s Submission) Clone() Submission {
	out := s
	out.Questions = make([]AnsweredQuestion, len(s.Questions))
	for i, q := range s.Questions {
		q.Choices = append([]string(nil), q.Choices...)
		out.Questions[i] = q
	}
	return out
}

// ReviewResult is the moderator disposition shown on a review message.
type ReviewResult int

const (
	ReviewPending ReviewResult = iota
	ReviewApproved
	ReviewRejected
)

func (r ReviewResult) String() string {
	switch r {
	case ReviewApproved:
		return "approved"
	case ReviewRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// NotEditing is the EditingIndex value of a review that is not in edit mode.
const NotEditing = -1

// ReviewState is rebuilt on every interaction from the stored submission and
// the parameters encoded in the action. It is never persisted.
type ReviewState struct {
	Result       ReviewResult
	EditingIndex int
	RejectReason string
}

// PendingReview returns the state of a freshly posted review.
func PendingReview() ReviewState {
	return ReviewState{Result: ReviewPending, EditingIndex: NotEditing}
}

// Editing reports whether a question is selected for editing.
func (s ReviewState) Editing() bool {
	return s.EditingIndex != NotEditing
}

// WrapIndex moves index by delta within [0, n), wrapping in both directions.
func WrapIndex(index, delta, n int) int {
	if n <= 0 {
		return 0
	}
	return ((index+delta)%n + n) % n
}
