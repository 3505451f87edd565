package bot

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/pitabwire/irrbot/internal/catalog"
	"github.com/pitabwire/irrbot/internal/observability"
	"github.com/pitabwire/irrbot/internal/review"
	"github.com/pitabwire/irrbot/internal/store"
	"github.com/pitabwire/irrbot/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePlatform struct {
	mu      sync.Mutex
	reviews []model.MessageView
	threads []review.ForumThread
	postErr error
}

func (p *fakePlatform) UserMention(id string) string    { return "<@" + id + ">" }
func (p *fakePlatform) RoleMention(id string) string    { return "<@&" + id + ">" }
func (p *fakePlatform) ChannelMention(id string) string { return "<#" + id + ">" }

func (p *fakePlatform) CreateForumThread(_ context.Context, thread review.ForumThread) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.threads = append(p.threads, thread)
	return "t", nil
}

func (p *fakePlatform) ForumTags(context.Context) ([]model.ForumTag, error) {
	return []model.ForumTag{{ID: "100", Name: "GT3", Emoji: "🏎️"}, {ID: "200", Name: "Endurance"}}, nil
}

func (p *fakePlatform) DirectMessage(context.Context, string, model.MessageView) error { return nil }

func (p *fakePlatform) MemberName(_ context.Context, id string) (string, error) {
	return "member" + id, nil
}

func (p *fakePlatform) ExpireSession(context.Context, string, model.MessageView) error { return nil }

func (p *fakePlatform) PostReview(_ context.Context, _ string, view model.MessageView) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.postErr != nil {
		return p.postErr
	}
	p.reviews = append(p.reviews, view)
	return nil
}

type harness struct {
	bot      *Bot
	platform *fakePlatform
	subs     store.Table[model.Submission]
	counter  *store.Counter
	metrics  *observability.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cat, err := catalog.New([]model.Question{
		{Title: "Which series?", Kind: model.KindMultipleChoice, Choices: []string{"GT3", "Endurance"}},
		{Title: "Video evidence?", Kind: model.KindYesNo},
	})
	require.NoError(t, err)
	rules, err := catalog.NewTagRules([]model.TagRule{{Contains: "gt3", TagID: "100"}})
	require.NoError(t, err)

	h := &harness{
		platform: &fakePlatform{},
		subs:     store.NewMemoryTable[model.Submission](),
		counter:  store.NewCounter(store.NewMemoryTable[int64](), "irr"),
		metrics:  observability.InitMetrics(prometheus.NewRegistry()),
	}
	h.bot = New(Config{LogChannelID: "log", ForumChannelID: "forum", ButtonMessage: "Protest here"}, Deps{
		Catalog:     cat,
		Rules:       rules,
		Submissions: h.subs,
		Sequence:    h.counter,
		Platform:    h.platform,
		Metrics:     h.metrics,
		Logger:      zap.NewNop(),
	})
	t.Cleanup(h.bot.Stop)
	return h
}

func memberCtx(id string, moderator bool) context.Context {
	return model.WithInteractionContext(context.Background(), &model.InteractionContext{
		ActorID:       id,
		CorrelationID: "corr-" + id,
		CanModerate:   moderator,
	})
}

func (h *harness) click(t *testing.T, ctx context.Context, customID string, input model.InteractionInput) model.Reply {
	t.Helper()
	reply, handled, err := h.bot.HandleInteraction(ctx, customID, input)
	require.NoError(t, err)
	require.True(t, handled, customID)
	return reply
}

func TestBot_SubmitAndApprove(t *testing.T) {
	h := newHarness(t)
	member := memberCtx("42", false)

	reply := h.click(t, member, h.bot.StartButton().Components[0].CustomID, model.InteractionInput{})
	require.Equal(t, model.ReplyMessage, reply.Kind)
	assert.True(t, reply.Ephemeral)
	begin := reply.View.Components[0].CustomID

	reply = h.click(t, member, begin, model.InteractionInput{})
	reply = h.click(t, member, reply.View.Components[0].CustomID, model.InteractionInput{Values: []string{"GT3"}})
	require.Equal(t, 1, h.bot.Active())
	h.click(t, member, reply.View.Components[1].CustomID, model.InteractionInput{})
	assert.Zero(t, h.bot.Active())

	require.Len(t, h.platform.reviews, 1)
	posted := h.platform.reviews[0]
	assert.Equal(t, "Questionnaire Answer", posted.Title)
	n, _ := h.subs.Len(context.Background())
	assert.Equal(t, 1, n)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.PendingSubmissions))

	// The member cannot review their own submission.
	reply = h.click(t, member, posted.Components[0].CustomID, model.InteractionInput{})
	assert.Equal(t, model.ReplyNotice, reply.Kind)

	reply = h.click(t, memberCtx("1", true), posted.Components[0].CustomID, model.InteractionInput{})
	require.Equal(t, model.ReplyUpdate, reply.Kind)
	assert.Equal(t, "Approved", reply.View.Components[0].Label)

	require.Len(t, h.platform.threads, 1)
	assert.Equal(t, "IRR #1 — member42", h.platform.threads[0].Title)
	assert.Equal(t, []model.ForumTag{{ID: "100", Name: "GT3", Emoji: "🏎️"}}, h.platform.threads[0].Tags)

	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.PendingSubmissions))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.SubmissionsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ReviewsTotal.WithLabelValues("approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.InteractionsTotal.WithLabelValues("questions", "approve", observability.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.InteractionsTotal.WithLabelValues("questions", "approve", observability.OutcomeUserError)))
}

func TestBot_ForeignNamespacePassesThrough(t *testing.T) {
	h := newHarness(t)

	for _, id := range []string{"music:::play-1", "plain-button", ""} {
		_, handled, err := h.bot.HandleInteraction(memberCtx("1", true), id, model.InteractionInput{})
		assert.NoError(t, err, id)
		assert.False(t, handled, id)
	}
}

func TestBot_UserErrorsBecomeNotices(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name     string
		customID string
		want     string
	}{
		{"malformed id", "questions:::approve", ""},
		{"missing submission", "questions:::approve-deadbeef", "I could not seem to find this answer.."},
		{"expired session", "questionnaire:::begin-0011223344556677", "This questionnaire has expired. Please start a new one."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := h.click(t, memberCtx("1", true), tt.customID, model.InteractionInput{})
			assert.Equal(t, model.ReplyNotice, reply.Kind)
			assert.True(t, reply.Ephemeral)
			if tt.want != "" {
				assert.Equal(t, tt.want, reply.Notice)
			}
		})
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.InteractionsTotal.WithLabelValues("questions", "invalid", observability.OutcomeUserError)))
}

func TestBot_PostFailureIsUnhandledButDurable(t *testing.T) {
	h := newHarness(t)
	h.platform.postErr = errors.New("missing access")

	sub := model.Submission{ID: "abcd1234", UserID: "42", CreatedAt: 1}
	err := h.bot.RecordSubmission(context.Background(), sub)
	require.Error(t, err)

	view, err := h.bot.PendingReport(context.Background())
	require.NoError(t, err)
	assert.Contains(t, view.Description, "`abcd1234` <@42>")
}

func TestBot_ForumTagsReport(t *testing.T) {
	h := newHarness(t)

	view, err := h.bot.ForumTagsReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Forum Tags", view.Title)
	assert.Equal(t, "ID: `100` 🏎️ **GT3**\nID: `200` **Endurance**", view.Description)

	assert.Equal(t, "No tags found.", ForumTagsView(nil).Description)
}

func TestPending_sortedByAge(t *testing.T) {
	ctx := context.Background()
	subs := store.NewMemoryTable[model.Submission]()
	require.NoError(t, subs.Put(ctx, "b", model.Submission{ID: "b", UserID: "2", CreatedAt: 200}))
	require.NoError(t, subs.Put(ctx, "a", model.Submission{ID: "a", UserID: "1", CreatedAt: 300}))
	require.NoError(t, subs.Put(ctx, "c", model.Submission{ID: "c", UserID: "3", CreatedAt: 100}))

	got, err := Pending(ctx, subs)
	require.NoError(t, err)
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	assert.Equal(t, []string{"c", "b", "a"}, ids)

	assert.Equal(t, "No pending submissions.", PendingView(nil, &fakePlatform{}).Description)
}

func TestActionLabels(t *testing.T) {
	tests := []struct {
		id, namespace, verb string
	}{
		{"questions:::start", "questions", "start"},
		{"questions:::edit-abcd1234-1", "questions", "edit"},
		{"questionnaire:::text_submit-ff-2", "questionnaire", "text_submit"},
		{"questions:::", "questions", "unknown"},
	}
	for _, tt := range tests {
		ns, verb := actionLabels(tt.id)
		assert.Equal(t, tt.namespace, ns, tt.id)
		assert.Equal(t, tt.verb, verb, tt.id)
	}
}
