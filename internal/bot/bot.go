// Package bot ties the questionnaire flow and the review state machine to the
// chat platform. A Bot is the single context object handed to the platform
// adapter; it owns every collaborator and holds no global state.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pitabwire/irrbot/internal/catalog"
	"github.com/pitabwire/irrbot/internal/observability"
	"github.com/pitabwire/irrbot/internal/questionnaire"
	"github.com/pitabwire/irrbot/internal/review"
	"github.com/pitabwire/irrbot/internal/store"
	"github.com/pitabwire/irrbot/model"
)

// Platform is everything the bot needs from the chat platform.
type Platform interface {
	review.Publisher
	questionnaire.Expirer
	// PostReview sends a new review message to channelID.
	PostReview(ctx context.Context, channelID string, view model.MessageView) error
}

// Config holds the guild-specific settings of the bot.
type Config struct {
	LogChannelID    string
	ForumChannelID  string
	ModeratorRoleID string
	ProtestEmojiID  string
	ButtonMessage   string
	IdleTimeout     time.Duration
}

// Deps are the collaborators of a Bot. Metrics may be nil.
type Deps struct {
	Catalog     *catalog.Catalog
	Rules       *catalog.TagRules
	Submissions store.Table[model.Submission]
	Sequence    review.Sequence
	Platform    Platform
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// Bot routes interactions to the questionnaire manager and the reviewer.
type Bot struct {
	cfg         Config
	submissions store.Table[model.Submission]
	platform    Platform
	questions   *questionnaire.Manager
	reviewer    *review.Reviewer
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// New creates a Bot.
func New(cfg Config, deps Deps) *Bot {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bot{
		cfg:         cfg,
		submissions: deps.Submissions,
		platform:    deps.Platform,
		metrics:     deps.Metrics,
		logger:      logger,
	}

	qcfg := questionnaire.Config{IdleTimeout: cfg.IdleTimeout}
	rcfg := review.Config{
		ModeratorRoleID: cfg.ModeratorRoleID,
		ForumChannelID:  cfg.ForumChannelID,
	}
	if b.metrics != nil {
		qcfg.OnActiveChange = b.metrics.SetActiveSessions
		rcfg.OnResult = func(result model.ReviewResult) {
			b.metrics.RecordReview(result)
			b.refreshPending(context.Background())
		}
	}

	b.questions = questionnaire.NewManager(deps.Catalog, b, deps.Platform, qcfg, logger.Named("questionnaire"))
	b.reviewer = review.NewReviewer(deps.Submissions, deps.Sequence, deps.Rules, deps.Platform, rcfg, logger.Named("review"))
	return b
}

// HandleInteraction decodes customID and applies it. handled is false for ids
// outside the reserved namespaces, which must be left to other handlers.
// User-facing errors are returned as ephemeral notices; any other error is an
// unhandled failure for the caller to log and report.
func (b *Bot) HandleInteraction(ctx context.Context, customID string, input model.InteractionInput) (reply model.Reply, handled bool, err error) {
	action, err := model.ParseAction(customID)
	if errors.Is(err, model.ErrForeignNamespace) {
		return model.Reply{}, false, nil
	}

	namespace, verb := actionLabels(customID)
	if err != nil {
		verb = "invalid"
	}
	ctx, span := observability.StartSpan(ctx, "interaction "+namespace+"."+verb,
		observability.AttrNamespace.String(namespace),
		observability.AttrVerb.String(verb),
		observability.AttrActorID.String(model.ActorFrom(ctx).ActorID),
	)
	logger := observability.InteractionLogger(ctx, b.logger)
	ctx = observability.WithLogger(ctx, logger)
	start := time.Now()

	if err == nil {
		reply, err = b.dispatch(ctx, action, input)
	}

	observability.EndInteractionSpan(span, err)
	if b.metrics != nil {
		b.metrics.RecordInteraction(namespace, verb, err, time.Since(start))
	}

	if err == nil {
		logger.Debug("interaction handled", zap.String("custom_id", customID))
		return reply, true, nil
	}

	var env *model.ErrorEnvelope
	if errors.As(err, &env) && model.IsUserFacing(err) {
		logger.Warn("interaction rejected",
			zap.String("custom_id", customID),
			zap.String("code", env.Code),
			zap.String("reason", env.Message),
		)
		return model.NoticeReply(env.Message), true, nil
	}
	return model.Reply{}, true, fmt.Errorf("interaction %s: %w", customID, err)
}

func (b *Bot) dispatch(ctx context.Context, action model.Action, input model.InteractionInput) (model.Reply, error) {
	switch a := action.(type) {
	case model.Start:
		return b.questions.Start(ctx)
	case model.FlowAction:
		trace.SpanFromContext(ctx).SetAttributes(observability.AttrSessionID.String(a.SessionTarget()))
		return b.questions.Handle(ctx, a, input)
	case model.ReviewAction:
		trace.SpanFromContext(ctx).SetAttributes(observability.AttrSubmissionID.String(a.SubmissionTarget()))
		return b.reviewer.Handle(ctx, a, input)
	}
	return model.Reply{}, model.NewInvalidActionError(fmt.Sprintf("unsupported action %T", action))
}

// RecordSubmission stores a completed questionnaire and posts it for review.
// The record is durable before the review message exists, so a failed post
// leaves it listed by PendingReport.
func (b *Bot) RecordSubmission(ctx context.Context, sub model.Submission) error {
	if err := b.submissions.Put(ctx, sub.ID, sub); err != nil {
		return fmt.Errorf("store submission %s: %w", sub.ID, err)
	}
	if b.metrics != nil {
		b.metrics.RecordSubmission()
	}
	b.refreshPending(ctx)

	logger := observability.LoggerFrom(ctx, b.logger)
	logger.Info("submission recorded",
		zap.String("submission_id", sub.ID),
		zap.String("user_id", sub.UserID),
		zap.Int("questions", len(sub.Questions)),
	)

	view := review.Render(sub, model.PendingReview(), b.platform)
	if err := b.platform.PostReview(ctx, b.cfg.LogChannelID, view); err != nil {
		return fmt.Errorf("post review for %s: %w", sub.ID, err)
	}
	return nil
}

// StartButton is the persistent message members use to open a questionnaire.
func (b *Bot) StartButton() model.MessageView {
	return model.MessageView{
		Description: b.cfg.ButtonMessage,
		Color:       model.ColorRegular,
		Components: []model.Component{{
			Kind:     model.ComponentButton,
			CustomID: model.Start{}.CustomID(),
			Label:    "File a Protest (IRR)",
			Emoji:    b.cfg.ProtestEmojiID,
			Style:    model.StyleDanger,
		}},
	}
}

// ForumTagsReport lists the tags of the forum channel with their ids, for
// writing tag rules.
func (b *Bot) ForumTagsReport(ctx context.Context) (model.MessageView, error) {
	tags, err := b.platform.ForumTags(ctx)
	if err != nil {
		return model.MessageView{}, fmt.Errorf("list forum tags: %w", err)
	}
	return ForumTagsView(tags), nil
}

// PendingReport lists every stored submission that is awaiting a decision.
func (b *Bot) PendingReport(ctx context.Context) (model.MessageView, error) {
	subs, err := Pending(ctx, b.submissions)
	if err != nil {
		return model.MessageView{}, err
	}
	return PendingView(subs, b.platform), nil
}

// Active returns the number of questionnaires in progress.
func (b *Bot) Active() int {
	return b.questions.Active()
}

// Stop cancels every questionnaire timer.
func (b *Bot) Stop() {
	b.questions.Stop()
}

func (b *Bot) refreshPending(ctx context.Context) {
	if b.metrics == nil {
		return
	}
	n, err := b.submissions.Len(ctx)
	if err != nil {
		b.logger.Warn("count pending submissions", zap.Error(err))
		return
	}
	b.metrics.SetPendingSubmissions(n)
}

// actionLabels splits a reserved custom id into metric labels. The verb is
// the first segment after the namespace so arguments never become labels.
func actionLabels(customID string) (namespace, verb string) {
	namespace, rest, _ := strings.Cut(customID, model.NamespaceDelimiter)
	verb, _, _ = strings.Cut(rest, model.ArgDelimiter)
	if verb == "" {
		verb = "unknown"
	}
	return namespace, verb
}
