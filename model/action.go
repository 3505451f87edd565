package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Component custom ids have the form "<namespace>:::<verb>[-<arg>]*".
const (
	NamespaceDelimiter = ":::"
	ArgDelimiter       = "-"

	// ReviewNamespace holds the start button and every moderator control.
	// The value matches the ids already attached to posted messages.
	ReviewNamespace = "questions"
	// FlowNamespace holds the controls of an in-progress questionnaire.
	FlowNamespace = "questionnaire"
)

// ErrForeignNamespace is returned by ParseAction for custom ids that belong to
// other collaborators. Callers must pass such ids on untouched.
var ErrForeignNamespace = errors.New("custom id outside reserved namespaces")

// Action is one decoded component interaction. The set of implementations is
// closed; handlers switch on the concrete type.
type Action interface {
	// CustomID encodes the action back into its wire form.
	CustomID() string
	isAction()
}

// ReviewAction is an action that targets a stored submission.
type ReviewAction interface {
	Action
	SubmissionTarget() string
}

// FlowAction is an action that targets an in-progress questionnaire session.
type FlowAction interface {
	Action
	SessionTarget() string
}

// --- review namespace ---

// Start opens a new questionnaire for the clicking member.
type Start struct{}

// Approve finalizes a submission and publishes it.
type Approve struct{ SubmissionID string }

// Reject opens the rejection reason prompt.
type Reject struct{ SubmissionID string }

// RejectReason is the submission of the rejection prompt.
type RejectReason struct{ SubmissionID string }

// ToggleEdit enters or leaves edit mode. Editing is the state at render time.
type ToggleEdit struct {
	SubmissionID string
	Editing      bool
}

// IndexUp selects the previous question for editing.
type IndexUp struct {
	SubmissionID string
	Index        int
}

// IndexDown selects the next question for editing.
type IndexDown struct {
	SubmissionID string
	Index        int
}

// SetChoice overwrites a multiple choice answer with the selected value.
type SetChoice struct {
	SubmissionID string
	Index        int
}

// SetYesNo overwrites a yes/no answer.
type SetYesNo struct {
	SubmissionID string
	Index        int
	Yes          bool
}

// EditText opens a modal pre-filled with a text answer.
type EditText struct {
	SubmissionID string
	Index        int
}

// SubmitText is the submission of the EditText modal.
type SubmitText struct {
	SubmissionID string
	Index        int
}

// --- flow namespace ---

// Begin shows the first question of a session.
type Begin struct{ SessionID string }

// AnswerChoice records the selected choice for question Index.
type AnswerChoice struct {
	SessionID string
	Index     int
}

// AnswerYesNo records Yes or No for question Index.
type AnswerYesNo struct {
	SessionID string
	Index     int
	Yes       bool
}

// AnswerText opens the answer modal for question Index.
type AnswerText struct {
	SessionID string
	Index     int
}

// SubmitAnswerText is the submission of the AnswerText modal.
type SubmitAnswerText struct {
	SessionID string
	Index     int
}

func (Start) CustomID() string { return encode(ReviewNamespace, "start") }
func (a Approve) CustomID() string {
	return encode(ReviewNamespace, "approve", a.SubmissionID)
}
func (a Reject) CustomID() string {
	return encode(ReviewNamespace, "reject", a.SubmissionID)
}
func (a RejectReason) CustomID() string {
	return encode(ReviewNamespace, "reject_reason", a.SubmissionID)
}
func (a ToggleEdit) CustomID() string {
	flag := "0"
	if a.Editing {
		flag = "1"
	}
	return encode(ReviewNamespace, "edit", a.SubmissionID, flag)
}
func (a IndexUp) CustomID() string {
	return encode(ReviewNamespace, "index_up", a.SubmissionID, strconv.Itoa(a.Index))
}
func (a IndexDown) CustomID() string {
	return encode(ReviewNamespace, "index_down", a.SubmissionID, strconv.Itoa(a.Index))
}
func (a SetChoice) CustomID() string {
	return encode(ReviewNamespace, "multiple_choice", a.SubmissionID, strconv.Itoa(a.Index))
}
func (a SetYesNo) CustomID() string {
	return encode(ReviewNamespace, yesNoVerb(a.Yes), a.SubmissionID, strconv.Itoa(a.Index))
}
func (a EditText) CustomID() string {
	return encode(ReviewNamespace, "text", a.SubmissionID, strconv.Itoa(a.Index))
}
func (a SubmitText) CustomID() string {
	return encode(ReviewNamespace, "text_submit", a.SubmissionID, strconv.Itoa(a.Index))
}

func (a Begin) CustomID() string { return encode(FlowNamespace, "begin", a.SessionID) }
func (a AnswerChoice) CustomID() string {
	return encode(FlowNamespace, "choice", a.SessionID, strconv.Itoa(a.Index))
}
func (a AnswerYesNo) CustomID() string {
	return encode(FlowNamespace, yesNoVerb(a.Yes), a.SessionID, strconv.Itoa(a.Index))
}
func (a AnswerText) CustomID() string {
	return encode(FlowNamespace, "text", a.SessionID, strconv.Itoa(a.Index))
}
func (a SubmitAnswerText) CustomID() string {
	return encode(FlowNamespace, "text_submit", a.SessionID, strconv.Itoa(a.Index))
}

func (Start) isAction()            {}
func (Approve) isAction()          {}
func (Reject) isAction()           {}
func (RejectReason) isAction()     {}
func (ToggleEdit) isAction()       {}
func (IndexUp) isAction()          {}
func (IndexDown) isAction()        {}
func (SetChoice) isAction()        {}
func (SetYesNo) isAction()         {}
func (EditText) isAction()         {}
func (SubmitText) isAction()       {}
func (Begin) isAction()            {}
func (AnswerChoice) isAction()     {}
func (AnswerYesNo) isAction()      {}
func (AnswerText) isAction()       {}
func (SubmitAnswerText) isAction() {}

func (a Approve) SubmissionTarget() string      { return a.SubmissionID }
func (a Reject) SubmissionTarget() string       { return a.SubmissionID }
func (a RejectReason) SubmissionTarget() string { return a.SubmissionID }
func (a ToggleEdit) SubmissionTarget() string   { return a.SubmissionID }
func (a IndexUp) SubmissionTarget() string      { return a.SubmissionID }
func (a IndexDown) SubmissionTarget() string    { return a.SubmissionID }
func (a SetChoice) SubmissionTarget() string    { return a.SubmissionID }
func (a SetYesNo) SubmissionTarget() string     { return a.SubmissionID }
func (a EditText) SubmissionTarget() string     { return a.SubmissionID }
func (a SubmitText) SubmissionTarget() string   { return a.SubmissionID }

func (a Begin) SessionTarget() string            { return a.SessionID }
func (a AnswerChoice) SessionTarget() string     { return a.SessionID }
func (a AnswerYesNo) SessionTarget() string      { return a.SessionID }
func (a AnswerText) SessionTarget() string       { return a.SessionID }
func (a SubmitAnswerText) SessionTarget() string { return a.SessionID }

func yesNoVerb(yes bool) string {
	if yes {
		return "yes"
	}
	return "no"
}

func encode(namespace, verb string, args ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	b.WriteString(NamespaceDelimiter)
	b.WriteString(verb)
	for _, a := range args {
		b.WriteString(ArgDelimiter)
		b.WriteString(a)
	}
	return b.String()
}

type parseFunc func(args []string) (Action, error)

var reviewVerbs = map[string]parseFunc{
	"start": func(args []string) (Action, error) {
		if len(args) != 0 {
			return nil, argCountError("start", 0, len(args))
		}
		return Start{}, nil
	},
	"approve": func(args []string) (Action, error) {
		id, err := targetOnly("approve", args)
		return Approve{SubmissionID: id}, err
	},
	"reject": func(args []string) (Action, error) {
		id, err := targetOnly("reject", args)
		return Reject{SubmissionID: id}, err
	},
	"reject_reason": func(args []string) (Action, error) {
		id, err := targetOnly("reject_reason", args)
		return RejectReason{SubmissionID: id}, err
	},
	"edit": func(args []string) (Action, error) {
		if len(args) != 2 {
			return nil, argCountError("edit", 2, len(args))
		}
		if args[1] != "0" && args[1] != "1" {
			return nil, NewInvalidActionError(fmt.Sprintf("edit flag %q must be 0 or 1", args[1]))
		}
		if args[0] == "" {
			return nil, NewInvalidActionError("edit: empty target id")
		}
		return ToggleEdit{SubmissionID: args[0], Editing: args[1] == "1"}, nil
	},
	"index_up": func(args []string) (Action, error) {
		id, idx, err := targetAndIndex("index_up", args)
		return IndexUp{SubmissionID: id, Index: idx}, err
	},
	"index_down": func(args []string) (Action, error) {
		id, idx, err := targetAndIndex("index_down", args)
		return IndexDown{SubmissionID: id, Index: idx}, err
	},
	"multiple_choice": func(args []string) (Action, error) {
		id, idx, err := targetAndIndex("multiple_choice", args)
		return SetChoice{SubmissionID: id, Index: idx}, err
	},
	"yes": func(args []string) (Action, error) {
		id, idx, err := targetAndIndex("yes", args)
		return SetYesNo{SubmissionID: id, Index: idx, Yes: true}, err
	},
	"no": func(args []string) (Action, error) {
		id, idx, err := targetAndIndex("no", args)
		return SetYesNo{SubmissionID: id, Index: idx}, err
	},
	"text": func(args []string) (Action, error) {
		id, idx, err := targetAndIndex("text", args)
		return EditText{SubmissionID: id, Index: idx}, err
	},
	"text_submit": func(args []string) (Action, error) {
		id, idx, err := targetAndIndex("text_submit", args)
		return SubmitText{SubmissionID: id, Index: idx}, err
	},
}

var flowVerbs = map[string]parseFunc{
	"begin": func(args []string) (Action, error) {
		id, err := targetOnly("begin", args)
		return Begin{SessionID: id}, err
	},
	"choice": func(args []string) (Action, error) {
		id, idx, err := targetAndIndex("choice", args)
		return AnswerChoice{SessionID: id, Index: idx}, err
	},
	"yes": func(args []string) (Action, error) {
		id, idx, err := targetAndIndex("yes", args)
		return AnswerYesNo{SessionID: id, Index: idx, Yes: true}, err
	},
	"no": func(args []string) (Action, error) {
		id, idx, err := targetAndIndex("no", args)
		return AnswerYesNo{SessionID: id, Index: idx}, err
	},
	"text": func(args []string) (Action, error) {
		id, idx, err := targetAndIndex("text", args)
		return AnswerText{SessionID: id, Index: idx}, err
	},
	"text_submit": func(args []string) (Action, error) {
		id, idx, err := targetAndIndex("text_submit", args)
		return SubmitAnswerText{SessionID: id, Index: idx}, err
	},
}

// IsReserved reports whether customID belongs to one of the namespaces
// handled by the core.
func IsReserved(customID string) bool {
	ns, _, ok := strings.Cut(customID, NamespaceDelimiter)
	return ok && (ns == ReviewNamespace || ns == FlowNamespace)
}

// ParseAction decodes a component custom id. Ids outside the reserved
// namespaces yield ErrForeignNamespace; malformed ids yield INVALID_ACTION.
func ParseAction(customID string) (Action, error) {
	ns, rest, ok := strings.Cut(customID, NamespaceDelimiter)
	if !ok {
		return nil, ErrForeignNamespace
	}

	var verbs map[string]parseFunc
	switch ns {
	case ReviewNamespace:
		verbs = reviewVerbs
	case FlowNamespace:
		verbs = flowVerbs
	default:
		return nil, ErrForeignNamespace
	}

	parts := strings.Split(rest, ArgDelimiter)
	parse, ok := verbs[parts[0]]
	if !ok {
		return nil, NewInvalidActionError(fmt.Sprintf("unknown verb %q in namespace %q", parts[0], ns))
	}
	action, err := parse(parts[1:])
	if err != nil {
		return nil, err
	}
	return action, nil
}

func targetOnly(verb string, args []string) (string, error) {
	if len(args) != 1 {
		return "", argCountError(verb, 1, len(args))
	}
	if args[0] == "" {
		return "", NewInvalidActionError(fmt.Sprintf("%s: empty target id", verb))
	}
	return args[0], nil
}

func targetAndIndex(verb string, args []string) (string, int, error) {
	if len(args) != 2 {
		return "", 0, argCountError(verb, 2, len(args))
	}
	if args[0] == "" {
		return "", 0, NewInvalidActionError(fmt.Sprintf("%s: empty target id", verb))
	}
	idx, err := strconv.Atoi(args[1])
	if err != nil || idx < 0 {
		return "", 0, NewInvalidActionError(fmt.Sprintf("%s: invalid question index %q", verb, args[1]))
	}
	return args[0], idx, nil
}

func argCountError(verb string, want, got int) error {
	return NewInvalidActionError(fmt.Sprintf("%s: expected %d arguments, got %d", verb, want, got))
}

// EncodeAction is the inverse of ParseAction.
func EncodeAction(a Action) string {
	return a.CustomID()
}
