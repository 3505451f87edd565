package review

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pitabwire/irrbot/internal/catalog"
	"github.com/pitabwire/irrbot/internal/store"
	"github.com/pitabwire/irrbot/internal/tagging"
	"github.com/pitabwire/irrbot/model"
)

// RejectReasonMaxLength bounds the rejection prompt.
const RejectReasonMaxLength = 2000

const notFoundMessage = "I could not seem to find this answer.."

// ForumThread is a public post created for an approved submission.
type ForumThread struct {
	Title   string
	Content string
	View    model.MessageView
	Tags    []model.ForumTag
}

// Publisher is the part of the chat platform the reviewer talks to.
type Publisher interface {
	Mentioner
	CreateForumThread(ctx context.Context, thread ForumThread) (string, error)
	ForumTags(ctx context.Context) ([]model.ForumTag, error)
	DirectMessage(ctx context.Context, userID string, view model.MessageView) error
	MemberName(ctx context.Context, userID string) (string, error)
}

// Sequence issues the published IRR numbers.
type Sequence interface {
	Next(ctx context.Context) (int64, error)
}

// Config holds Reviewer settings.
type Config struct {
	// ModeratorRoleID is mentioned in every published thread. Empty disables
	// the mention.
	ModeratorRoleID string
	// ForumChannelID is named in rejection notices.
	ForumChannelID string
	// OnResult is called after every approval or rejection.
	OnResult func(result model.ReviewResult)
}

// Reviewer applies moderator actions to stored submissions. Every action starts
// from the stored record; mutations are serialized so a record removed by one
// moderator is never written back by another.
type Reviewer struct {
	submissions store.Table[model.Submission]
	sequence    Sequence
	rules       *catalog.TagRules
	publisher   Publisher
	cfg         Config
	logger      *zap.Logger

	mu sync.Mutex
}

// NewReviewer creates a Reviewer.
func NewReviewer(
	submissions store.Table[model.Submission],
	sequence Sequence,
	rules *catalog.TagRules,
	publisher Publisher,
	cfg Config,
	logger *zap.Logger,
) *Reviewer {
	return &Reviewer{
		submissions: submissions,
		sequence:    sequence,
		rules:       rules,
		publisher:   publisher,
		cfg:         cfg,
		logger:      logger,
	}
}

// Handle applies a moderator action.
func (r *Reviewer) Handle(ctx context.Context, action model.ReviewAction, input model.InteractionInput) (model.Reply, error) {
	actor := model.ActorFrom(ctx)
	if !actor.CanModerate {
		return model.Reply{}, model.NewForbiddenError("only moderators can review answers")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok, err := r.submissions.Get(ctx, action.SubmissionTarget())
	if err != nil {
		return model.Reply{}, fmt.Errorf("load submission %s: %w", action.SubmissionTarget(), err)
	}
	if !ok {
		return model.Reply{}, model.NewNotFoundError(notFoundMessage)
	}

	switch a := action.(type) {
	case model.Approve:
		return r.approve(ctx, sub, actor)
	case model.Reject:
		return model.ModalReply(model.ModalView{
			CustomID: model.RejectReason{SubmissionID: sub.ID}.CustomID(),
			Title:    "Rejection Message",
			Input: model.TextInput{
				Label:     "Reason",
				MaxLength: RejectReasonMaxLength,
				Long:      true,
				Required:  true,
			},
		}), nil
	case model.RejectReason:
		return r.reject(ctx, sub, input.Text, actor)
	case model.ToggleEdit:
		state := model.PendingReview()
		if !a.Editing && len(sub.Questions) > 0 {
			state.EditingIndex = 0
		}
		return r.render(sub, state), nil
	case model.IndexUp:
		return r.render(sub, editing(model.WrapIndex(a.Index, -1, len(sub.Questions)))), nil
	case model.IndexDown:
		return r.render(sub, editing(model.WrapIndex(a.Index, 1, len(sub.Questions)))), nil
	case model.SetChoice:
		return r.overwrite(ctx, sub, a.Index, input.FirstValue(), model.KindMultipleChoice)
	case model.SetYesNo:
		value := model.AnswerNo
		if a.Yes {
			value = model.AnswerYes
		}
		return r.overwrite(ctx, sub, a.Index, value, model.KindYesNo)
	case model.EditText:
		q, err := textQuestion(sub, a.Index)
		if err != nil {
			return model.Reply{}, err
		}
		return model.ModalReply(model.ModalView{
			CustomID: model.SubmitText{SubmissionID: sub.ID, Index: a.Index}.CustomID(),
			Title:    "Edit Answer",
			Input: model.TextInput{
				Label:       q.Label(),
				Placeholder: q.Placeholder,
				Default:     q.Answer,
				MaxLength:   q.MaxLength,
				Long:        q.Kind == model.KindLongText,
				Required:    true,
			},
		}), nil
	case model.SubmitText:
		if _, err := textQuestion(sub, a.Index); err != nil {
			return model.Reply{}, err
		}
		return r.overwrite(ctx, sub, a.Index, input.Text, "")
	}
	return model.Reply{}, model.NewInvalidActionError(fmt.Sprintf("unsupported review action %T", action))
}

func (r *Reviewer) approve(ctx context.Context, sub model.Submission, actor model.InteractionContext) (model.Reply, error) {
	available, err := r.publisher.ForumTags(ctx)
	if err != nil {
		return model.Reply{}, fmt.Errorf("list forum tags: %w", err)
	}
	tags, unknown := tagging.Resolve(tagging.Derive(sub, r.rules.All()), available)
	if len(unknown) > 0 {
		r.logger.Warn("derived tags missing from forum",
			zap.String("submission_id", sub.ID),
			zap.Any("tag_ids", unknown),
		)
	}

	name, err := r.publisher.MemberName(ctx, sub.UserID)
	if err != nil {
		r.logger.Warn("member name lookup failed",
			zap.String("user_id", sub.UserID),
			zap.Error(err),
		)
		name = sub.UserID
	}

	n, err := r.sequence.Next(ctx)
	if err != nil {
		return model.Reply{}, fmt.Errorf("next irr number: %w", err)
	}

	content := r.publisher.UserMention(sub.UserID)
	if r.cfg.ModeratorRoleID != "" {
		content = r.publisher.RoleMention(r.cfg.ModeratorRoleID) + " " + content
	}
	threadID, err := r.publisher.CreateForumThread(ctx, ForumThread{
		Title:   fmt.Sprintf("IRR #%d — %s", n, name),
		Content: content,
		View:    ThreadView(sub, name),
		Tags:    tags,
	})
	if err != nil {
		return model.Reply{}, fmt.Errorf("publish submission %s as IRR #%d: %w", sub.ID, n, err)
	}

	// The thread exists at this point; a failed removal leaves a pending
	// record for the operator rather than losing the post.
	if err := r.submissions.Remove(ctx, sub.ID); err != nil {
		if !model.IsNotFound(err) {
			return model.Reply{}, fmt.Errorf("remove approved submission %s: %w", sub.ID, err)
		}
		r.logger.Warn("approved submission already removed", zap.String("submission_id", sub.ID))
	}

	r.logger.Info("submission approved",
		zap.String("submission_id", sub.ID),
		zap.Int64("irr_number", n),
		zap.String("thread_id", threadID),
		zap.String("moderator_id", actor.ActorID),
		zap.Int("tags", len(tags)),
	)
	r.notify(model.ReviewApproved)
	return r.render(sub, model.ReviewState{Result: model.ReviewApproved, EditingIndex: model.NotEditing}), nil
}

func (r *Reviewer) reject(ctx context.Context, sub model.Submission, reason string, actor model.InteractionContext) (model.Reply, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.Reply{}, model.NewValidationError("a rejection reason is required",
			model.FieldError{Field: "reason", Code: "REQUIRED", Message: "reason is required"})
	}
	if err := r.submissions.Remove(ctx, sub.ID); err != nil {
		if model.IsNotFound(err) {
			return model.Reply{}, model.NewNotFoundError(notFoundMessage)
		}
		return model.Reply{}, fmt.Errorf("remove rejected submission %s: %w", sub.ID, err)
	}

	r.logger.Info("submission rejected",
		zap.String("submission_id", sub.ID),
		zap.String("moderator_id", actor.ActorID),
	)
	r.notify(model.ReviewRejected)

	notice := RejectionNotice(reason, r.cfg.ForumChannelID, r.publisher)
	if err := r.publisher.DirectMessage(ctx, sub.UserID, notice); err != nil {
		r.logger.Warn("rejection notice not delivered",
			zap.String("submission_id", sub.ID),
			zap.String("user_id", sub.UserID),
			zap.Error(err),
		)
	}

	return r.render(sub, model.ReviewState{
		Result:       model.ReviewRejected,
		EditingIndex: model.NotEditing,
		RejectReason: reason,
	}), nil
}

// overwrite replaces the answer at index and persists the record. An empty
// kind accepts any text kind.
func (r *Reviewer) overwrite(ctx context.Context, sub model.Submission, index int, value string, kind model.QuestionKind) (model.Reply, error) {
	q, err := sub.QuestionAt(index)
	if err != nil {
		return model.Reply{}, err
	}
	if kind != "" && q.Kind != kind {
		return model.Reply{}, model.NewInvalidActionError(
			fmt.Sprintf("question %d is %s, not %s", index, q.Kind, kind))
	}
	if err := q.Accepts(value); err != nil {
		return model.Reply{}, err
	}

	updated := sub.Clone()
	updated.Questions[index].Answer = value
	if err := r.submissions.Put(ctx, updated.ID, updated); err != nil {
		return model.Reply{}, fmt.Errorf("save submission %s: %w", updated.ID, err)
	}
	r.logger.Debug("answer edited",
		zap.String("submission_id", updated.ID),
		zap.Int("index", index),
	)
	return r.render(updated, editing(index)), nil
}

func (r *Reviewer) render(sub model.Submission, state model.ReviewState) model.Reply {
	return model.UpdateReply(Render(sub, state, r.publisher))
}

func (r *Reviewer) notify(result model.ReviewResult) {
	if r.cfg.OnResult != nil {
		r.cfg.OnResult(result)
	}
}

func editing(index int) model.ReviewState {
	return model.ReviewState{Result: model.ReviewPending, EditingIndex: index}
}

func textQuestion(sub model.Submission, index int) (model.AnsweredQuestion, error) {
	q, err := sub.QuestionAt(index)
	if err != nil {
		return q, err
	}
	if !q.Kind.IsText() {
		return q, model.NewInvalidActionError(fmt.Sprintf("question %d is %s, not a text question", index, q.Kind))
	}
	return q, nil
}
