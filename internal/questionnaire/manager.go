package questionnaire

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pitabwire/irrbot/internal/catalog"
	"github.com/pitabwire/irrbot/model"
)

// Recorder persists a completed submission and announces it for review.
type Recorder interface {
	RecordSubmission(ctx context.Context, sub model.Submission) error
}

// Expirer replaces the message of an expired session. Token is the
// InteractionContext token captured when the session started.
type Expirer interface {
	ExpireSession(ctx context.Context, token string, view model.MessageView) error
}

// Config holds Manager settings. Zero values select the defaults.
type Config struct {
	// IdleTimeout is how long a session may go without interaction.
	IdleTimeout time.Duration
	// Clock stamps completed submissions.
	Clock func() time.Time
	// OnActiveChange is called with the number of live sessions after every
	// change.
	OnActiveChange func(active int)
	// ExpireTimeout bounds each Expirer call.
	ExpireTimeout time.Duration
}

// DefaultIdleTimeout matches the lifetime of the interactive message.
const DefaultIdleTimeout = 5 * time.Minute

type entry struct {
	session *Session
	token   string
	timer   *time.Timer
	gen     uint64

	// pending is the finished submission once every answer is in. The entry
	// stays live until the record succeeds so a failed write can be retried.
	pending   *model.Submission
	reply     model.Reply
	recording bool
}

// Manager owns every live session. Each interaction resets the session's idle
// timer; when it fires the session is dropped without persisting anything and
// its message is switched to the timed-out view.
type Manager struct {
	catalog  *catalog.Catalog
	recorder Recorder
	expirer  Expirer
	cfg      Config
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*entry
	stopped  bool
	timers   sync.WaitGroup
}

// NewManager creates a session manager.
func NewManager(cat *catalog.Catalog, recorder Recorder, expirer Expirer, cfg Config, logger *zap.Logger) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.ExpireTimeout <= 0 {
		cfg.ExpireTimeout = 10 * time.Second
	}
	return &Manager{
		catalog:  cat,
		recorder: recorder,
		expirer:  expirer,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*entry),
	}
}

// Start opens a new session for the acting member and returns the ephemeral
// message showing its first step.
func (m *Manager) Start(ctx context.Context) (model.Reply, error) {
	actor := model.ActorFrom(ctx)
	if actor.ActorID == "" {
		return model.Reply{}, model.NewForbiddenError("unknown member")
	}
	id, err := model.NewSessionID()
	if err != nil {
		return model.Reply{}, err
	}
	s := NewSession(id, actor.ActorID, m.catalog)

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return model.Reply{}, model.NewConflictError("questionnaires are not accepting new sessions")
	}
	e := &entry{session: s, token: actor.Token}
	m.sessions[id] = e
	m.armLocked(id, e)
	active := len(m.sessions)
	view := s.View()
	m.mu.Unlock()

	m.notifyActive(active)
	m.logger.Debug("questionnaire started",
		zap.String("session_id", id),
		zap.String("user_id", actor.ActorID),
	)
	return model.MessageReply(view, true), nil
}

// Handle applies a flow action to its session.
func (m *Manager) Handle(ctx context.Context, action model.FlowAction, input model.InteractionInput) (model.Reply, error) {
	actor := model.ActorFrom(ctx)

	m.mu.Lock()
	e, ok := m.sessions[action.SessionTarget()]
	if !ok {
		m.mu.Unlock()
		return model.Reply{}, model.NewNotFoundError(
			"This questionnaire has expired. Please start a new one.")
	}
	if e.session.UserID() != actor.ActorID {
		m.mu.Unlock()
		return model.Reply{}, model.NewForbiddenError("this questionnaire belongs to another member")
	}

	if e.pending == nil {
		reply, complete, err := m.applyLocked(e.session, action, input)
		m.armLocked(e.session.ID(), e)
		if err != nil || !complete {
			m.mu.Unlock()
			return reply, err
		}
		id, err := model.NewSubmissionID()
		if err != nil {
			m.mu.Unlock()
			return model.Reply{}, err
		}
		sub, err := e.session.Submission(id, m.cfg.Clock())
		if err != nil {
			m.mu.Unlock()
			return model.Reply{}, err
		}
		e.pending, e.reply = &sub, reply
	} else if e.recording {
		m.mu.Unlock()
		return model.Reply{}, model.NewStaleInteractionError("this questionnaire is already being submitted")
	}
	return m.record(ctx, e)
}

// record persists the pending submission of e. Callers hold m.mu; it is
// released before the recorder runs. On failure the entry keeps its answers
// and the next action on the session retries with the same submission id.
func (m *Manager) record(ctx context.Context, e *entry) (model.Reply, error) {
	e.recording = true
	m.disarmLocked(e)
	sub, reply := *e.pending, e.reply
	m.mu.Unlock()

	err := m.recorder.RecordSubmission(ctx, sub)

	m.mu.Lock()
	e.recording = false
	if err != nil {
		if !m.stopped && m.sessions[e.session.ID()] == e {
			m.armLocked(e.session.ID(), e)
		}
		m.mu.Unlock()
		m.logger.Warn("submission not recorded; answers kept for retry",
			zap.String("submission_id", sub.ID), zap.Error(err))
		return model.Reply{}, fmt.Errorf("record submission %s: %w", sub.ID, err)
	}
	if m.sessions[e.session.ID()] == e {
		delete(m.sessions, e.session.ID())
	}
	active := len(m.sessions)
	m.mu.Unlock()

	m.notifyActive(active)
	return reply, nil
}

// applyLocked runs one action against s. Callers hold m.mu.
func (m *Manager) applyLocked(s *Session, action model.FlowAction, input model.InteractionInput) (model.Reply, bool, error) {
	var (
		complete bool
		err      error
	)
	switch a := action.(type) {
	case model.Begin:
		err = s.Begin()
	case model.AnswerChoice:
		complete, err = s.Answer(a.Index, input.FirstValue())
	case model.AnswerYesNo:
		value := model.AnswerNo
		if a.Yes {
			value = model.AnswerYes
		}
		complete, err = s.Answer(a.Index, value)
	case model.AnswerText:
		modal, err := s.TextModal(a.Index)
		if err != nil {
			return model.Reply{}, false, err
		}
		return model.ModalReply(modal), false, nil
	case model.SubmitAnswerText:
		complete, err = s.Answer(a.Index, input.Text)
	default:
		err = model.NewInvalidActionError(fmt.Sprintf("unsupported questionnaire action %T", action))
	}
	if err != nil {
		return model.Reply{}, false, err
	}
	return model.UpdateReply(s.View()), complete, nil
}

// Active returns the number of live sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stop cancels every idle timer, waits for running expiries and drops all
// sessions. Start fails afterwards.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	for id, e := range m.sessions {
		m.disarmLocked(e)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	m.timers.Wait()
	m.notifyActive(0)
}

// armLocked (re)starts the idle timer of e. Callers hold m.mu.
func (m *Manager) armLocked(id string, e *entry) {
	m.disarmLocked(e)
	e.gen++
	gen := e.gen
	m.timers.Add(1)
	e.timer = time.AfterFunc(m.cfg.IdleTimeout, func() {
		defer m.timers.Done()
		m.expire(id, gen)
	})
}

// disarmLocked stops the idle timer of e. Callers hold m.mu.
func (m *Manager) disarmLocked(e *entry) {
	if e.timer != nil && e.timer.Stop() {
		m.timers.Done()
	}
	e.timer = nil
}

func (m *Manager) expire(id string, gen uint64) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok || e.gen != gen || e.recording {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, id)
	view := e.session.TimedOutView()
	active := len(m.sessions)
	m.mu.Unlock()

	m.notifyActive(active)
	m.logger.Debug("questionnaire timed out",
		zap.String("session_id", id),
		zap.String("user_id", e.session.UserID()),
		zap.Int("answered", e.session.Answered()),
	)

	if m.expirer == nil || e.token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ExpireTimeout)
	defer cancel()
	if err := m.expirer.ExpireSession(ctx, e.token, view); err != nil {
		m.logger.Warn("failed to mark questionnaire as timed out",
			zap.String("session_id", id),
			zap.Error(err),
		)
	}
}

func (m *Manager) notifyActive(n int) {
	if m.cfg.OnActiveChange != nil {
		m.cfg.OnActiveChange(n)
	}
}
