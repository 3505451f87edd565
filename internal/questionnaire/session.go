// Package questionnaire runs the interactive flow a member walks through to
// file a report: one question at a time, in catalog order, each answer
// validated against its question before the flow advances.
package questionnaire

import (
	"fmt"
	"time"

	"github.com/pitabwire/irrbot/internal/catalog"
	"github.com/pitabwire/irrbot/model"
)

// State is the position of a session in the flow.
type State int

const (
	StateNotStarted State = iota
	StateAnswering
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateAnswering:
		return "answering"
	case StateComplete:
		return "complete"
	default:
		return "not_started"
	}
}

// Session is one member's in-progress questionnaire. It is not safe for
// concurrent use; the Manager serializes access.
type Session struct {
	id      string
	userID  string
	catalog *catalog.Catalog
	started bool
	answers []string
}

// NewSession creates a session that has not been started.
func NewSession(id, userID string, cat *catalog.Catalog) *Session {
	return &Session{id: id, userID: userID, catalog: cat}
}

// ID returns the session id encoded in every control of the session.
func (s *Session) ID() string { return s.id }

// UserID returns the member filling in the questionnaire.
func (s *Session) UserID() string { return s.userID }

// Answered returns the number of accepted answers.
func (s *Session) Answered() int { return len(s.answers) }

// Current returns the index of the question awaiting an answer.
func (s *Session) Current() int { return len(s.answers) }

// State returns the flow state.
func (s *Session) State() State {
	switch {
	case len(s.answers) == s.catalog.Len():
		return StateComplete
	case s.started:
		return StateAnswering
	default:
		return StateNotStarted
	}
}

// Begin moves the session to the first question.
func (s *Session) Begin() error {
	if s.State() != StateNotStarted {
		return model.NewStaleInteractionError("this questionnaire has already started")
	}
	s.started = true
	return nil
}

// CurrentQuestion returns the question for index, which must be the question
// awaiting an answer.
func (s *Session) CurrentQuestion(index int) (model.Question, error) {
	if s.State() != StateAnswering {
		return model.Question{}, model.NewStaleInteractionError(
			fmt.Sprintf("questionnaire is %s", s.State()))
	}
	if index != s.Current() {
		return model.Question{}, model.NewStaleInteractionError(
			fmt.Sprintf("question #%d was already answered", index+1))
	}
	return s.catalog.At(index), nil
}

// Answer records value for question index. Answers for any question other
// than the current one are rejected and leave the session unchanged. It
// reports whether the session is now complete.
func (s *Session) Answer(index int, value string) (bool, error) {
	q, err := s.CurrentQuestion(index)
	if err != nil {
		return false, err
	}
	if err := q.Accepts(value); err != nil {
		return false, err
	}
	s.answers = append(s.answers, value)
	return s.State() == StateComplete, nil
}

// Submission snapshots every catalog question with its answer. It fails
// unless the session is complete.
func (s *Session) Submission(id string, now time.Time) (model.Submission, error) {
	if s.State() != StateComplete {
		return model.Submission{}, model.NewConflictError("questionnaire is not complete")
	}
	questions := make([]model.AnsweredQuestion, len(s.answers))
	for i, answer := range s.answers {
		questions[i] = model.AnsweredQuestion{Question: s.catalog.At(i), Answer: answer}
	}
	return model.Submission{
		ID:        id,
		UserID:    s.userID,
		CreatedAt: now.Unix(),
		Questions: questions,
	}, nil
}

// TextModal returns the answer prompt for a text question.
func (s *Session) TextModal(index int) (model.ModalView, error) {
	q, err := s.CurrentQuestion(index)
	if err != nil {
		return model.ModalView{}, err
	}
	if !q.Kind.IsText() {
		return model.ModalView{}, model.NewInvalidActionError(
			fmt.Sprintf("question #%d is not a text question", index+1))
	}
	return model.ModalView{
		CustomID: model.SubmitAnswerText{SessionID: s.id, Index: index}.CustomID(),
		Title:    q.Title,
		Input: model.TextInput{
			Label:       q.Label(),
			Placeholder: q.Placeholder,
			MaxLength:   q.MaxLength,
			Long:        q.Kind == model.KindLongText,
			Required:    true,
		},
	}, nil
}

// View renders the session: progress, the current prompt once begun and the
// single control needed next.
func (s *Session) View() model.MessageView {
	view := model.MessageView{Title: "Questionnaire", Color: model.ColorRegular}

	switch s.State() {
	case StateComplete:
		view.Description = "Thank you for answering all the questions!"
		return view
	case StateNotStarted:
		view.Description = s.progress()
		view.Fields = []model.EmbedField{{
			Name:  "Start Questionnaire",
			Value: "Click the button below to start the questionnaire.",
		}}
		view.Components = []model.Component{{
			Kind:     model.ComponentButton,
			CustomID: model.Begin{SessionID: s.id}.CustomID(),
			Label:    "Start Questionnaire",
			Style:    model.StylePrimary,
		}}
		return view
	}

	idx := s.Current()
	q := s.catalog.At(idx)
	view.Description = s.progress()
	view.Fields = []model.EmbedField{{
		Name:  fmt.Sprintf("Question #%d", idx+1),
		Value: q.Title,
	}}
	view.Components = answerControls(s.id, idx, q)
	return view
}

// TimedOutView renders an expired session: the last body with a single
// disabled control.
func (s *Session) TimedOutView() model.MessageView {
	view := s.View()
	view.Components = []model.Component{{
		Kind:     model.ComponentButton,
		CustomID: "questionnaire:::timed_out-" + s.id,
		Label:    "Message timed out",
		Style:    model.StyleSecondary,
		Disabled: true,
	}}
	return view
}

func (s *Session) progress() string {
	return fmt.Sprintf("Please answer the following questions with the components below.\n"+
		"You have already answered `%d/%d` questions.", s.Answered(), s.catalog.Len())
}

func answerControls(sessionID string, idx int, q model.Question) []model.Component {
	switch q.Kind {
	case model.KindMultipleChoice:
		opts := make([]model.SelectOption, len(q.Choices))
		for i, c := range q.Choices {
			opts[i] = model.SelectOption{Label: c, Value: c}
		}
		return []model.Component{{
			Kind:        model.ComponentSelect,
			CustomID:    model.AnswerChoice{SessionID: sessionID, Index: idx}.CustomID(),
			Placeholder: q.Title,
			Options:     opts,
		}}
	case model.KindShortText, model.KindLongText:
		return []model.Component{{
			Kind:     model.ComponentButton,
			CustomID: model.AnswerText{SessionID: sessionID, Index: idx}.CustomID(),
			Label:    "Answer Question",
			Style:    model.StyleDanger,
		}}
	case model.KindYesNo:
		return []model.Component{
			{
				Kind:     model.ComponentButton,
				CustomID: model.AnswerYesNo{SessionID: sessionID, Index: idx, Yes: true}.CustomID(),
				Label:    model.AnswerYes,
				Style:    model.StyleSuccess,
			},
			{
				Kind:     model.ComponentButton,
				CustomID: model.AnswerYesNo{SessionID: sessionID, Index: idx}.CustomID(),
				Label:    model.AnswerNo,
				Style:    model.StyleDanger,
			},
		}
	}
	return nil
}
