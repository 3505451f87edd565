// Package review implements the moderator side of a submission: the review
// message, in-place answer edits and the terminal approve/reject transitions.
//
// A review render is rebuilt from the stored submission and the parameters
// encoded in the clicked control on every interaction, so posted messages
// stay usable across restarts.
package review

import (
	"fmt"
	"strings"

	"github.com/pitabwire/irrbot/model"
)

// Mentioner formats platform mentions.
type Mentioner interface {
	UserMention(userID string) string
	RoleMention(roleID string) string
	ChannelMention(channelID string) string
}

const editMarker = "👉 "

// Render builds the review message for sub in state. It has no side effects.
func Render(sub model.Submission, state model.ReviewState, m Mentioner) model.MessageView {
	view := model.MessageView{
		Title:       "Questionnaire Answer",
		Description: fmt.Sprintf("**Answered By:** %s\n**Questions:**", m.UserMention(sub.UserID)),
		Color:       model.ColorRegular,
	}

	for i, q := range sub.Questions {
		name := fmt.Sprintf("#%d. %s", i+1, q.Title)
		if state.Editing() && i == state.EditingIndex {
			name = editMarker + name
		}
		view.Fields = append(view.Fields, model.EmbedField{Name: name, Value: "> " + q.Answer})
	}
	if state.RejectReason != "" {
		view.Fields = append(view.Fields, model.EmbedField{Name: "Rejected:", Value: state.RejectReason})
	}

	view.Components = controls(sub, state)
	return view
}

func controls(sub model.Submission, state model.ReviewState) []model.Component {
	switch state.Result {
	case model.ReviewApproved:
		return []model.Component{resultButton(sub.ID, "Approved", model.StyleSuccess)}
	case model.ReviewRejected:
		return []model.Component{resultButton(sub.ID, "Rejected", model.StyleDanger)}
	}

	editLabel := "Edit"
	if state.Editing() {
		editLabel = "Stop Editing"
	}
	c := []model.Component{
		{
			Kind:     model.ComponentButton,
			CustomID: model.Approve{SubmissionID: sub.ID}.CustomID(),
			Label:    "Approve",
			Style:    model.StyleSuccess,
			Disabled: state.Editing(),
		},
		{
			Kind:     model.ComponentButton,
			CustomID: model.Reject{SubmissionID: sub.ID}.CustomID(),
			Label:    "Reject",
			Style:    model.StyleDanger,
			Disabled: state.Editing(),
		},
		{
			Kind:     model.ComponentButton,
			CustomID: model.ToggleEdit{SubmissionID: sub.ID, Editing: state.Editing()}.CustomID(),
			Label:    editLabel,
			Style:    model.StylePrimary,
		},
	}
	if !state.Editing() || state.EditingIndex >= len(sub.Questions) {
		return c
	}

	idx := state.EditingIndex
	c = append(c,
		model.Component{
			Kind:     model.ComponentButton,
			CustomID: model.IndexUp{SubmissionID: sub.ID, Index: idx}.CustomID(),
			Emoji:    "⬆️",
			Style:    model.StyleSecondary,
		},
		model.Component{
			Kind:     model.ComponentButton,
			CustomID: model.IndexDown{SubmissionID: sub.ID, Index: idx}.CustomID(),
			Emoji:    "⬇️",
			Style:    model.StyleSecondary,
		},
	)
	return append(c, editor(sub.ID, idx, sub.Questions[idx])...)
}

// editor returns the row of controls that changes the answer of question idx.
func editor(id string, idx int, q model.AnsweredQuestion) []model.Component {
	switch q.Kind {
	case model.KindMultipleChoice:
		opts := make([]model.SelectOption, len(q.Choices))
		for i, choice := range q.Choices {
			opts[i] = model.SelectOption{Label: choice, Value: choice, Default: choice == q.Answer}
		}
		return []model.Component{{
			Kind:        model.ComponentSelect,
			CustomID:    model.SetChoice{SubmissionID: id, Index: idx}.CustomID(),
			Placeholder: q.Title + " [CLICK]",
			Options:     opts,
			Row:         1,
		}}
	case model.KindShortText, model.KindLongText:
		return []model.Component{{
			Kind:     model.ComponentButton,
			CustomID: model.EditText{SubmissionID: id, Index: idx}.CustomID(),
			Label:    "Edit Question Answer",
			Style:    model.StyleDanger,
			Row:      1,
		}}
	case model.KindYesNo:
		return []model.Component{
			{
				Kind:     model.ComponentButton,
				CustomID: model.SetYesNo{SubmissionID: id, Index: idx, Yes: true}.CustomID(),
				Label:    model.AnswerYes,
				Style:    model.StyleSuccess,
				Row:      1,
				Disabled: strings.EqualFold(q.Answer, model.AnswerYes),
			},
			{
				Kind:     model.ComponentButton,
				CustomID: model.SetYesNo{SubmissionID: id, Index: idx}.CustomID(),
				Label:    model.AnswerNo,
				Style:    model.StyleDanger,
				Row:      1,
				Disabled: strings.EqualFold(q.Answer, model.AnswerNo),
			},
		}
	}
	return nil
}

func resultButton(id, label string, style model.ButtonStyle) model.Component {
	return model.Component{
		Kind:     model.ComponentButton,
		CustomID: model.ReviewNamespace + model.NamespaceDelimiter + "result-" + id,
		Label:    label,
		Style:    style,
		Disabled: true,
	}
}

// ThreadView renders the public post of an approved submission.
func ThreadView(sub model.Submission, memberName string) model.MessageView {
	view := model.MessageView{
		Title: fmt.Sprintf("%s's answers", memberName),
		Color: model.ColorRegular,
	}
	for i, q := range sub.Questions {
		view.Fields = append(view.Fields, model.EmbedField{
			Name:  fmt.Sprintf("#%d: %s", i+1, q.Title),
			Value: q.Answer,
		})
	}
	return view
}

// RejectionNotice renders the direct message sent to a rejected submitter.
func RejectionNotice(reason, forumChannelID string, m Mentioner) model.MessageView {
	return model.MessageView{
		Description: fmt.Sprintf("Your answers have unfortunately been rejected from being posted in %s.",
			m.ChannelMention(forumChannelID)),
		Color:  model.ColorError,
		Fields: []model.EmbedField{{Name: "Reason", Value: reason}},
	}
}
