// Package discord connects the bot core to a Discord guild through
// discordgo. It converts interactions into core calls and core replies into
// interaction responses; it holds no moderation logic of its own.
package discord

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pitabwire/irrbot/internal/config"
	"github.com/pitabwire/irrbot/internal/review"
	"github.com/pitabwire/irrbot/model"
)

// Handler is the core the adapter forwards to.
type Handler interface {
	HandleInteraction(ctx context.Context, customID string, input model.InteractionInput) (model.Reply, bool, error)
	StartButton() model.MessageView
	ForumTagsReport(ctx context.Context) (model.MessageView, error)
	PendingReport(ctx context.Context) (model.MessageView, error)
}

const (
	interactionTimeout = 15 * time.Second
	failureNotice      = "Something went wrong while handling this. Please try again later."
)

// Adapter implements bot.Platform on a discordgo session.
type Adapter struct {
	session *discordgo.Session
	cfg     config.DiscordConfig
	logger  *zap.Logger

	mu          sync.RWMutex
	handler     Handler
	adminRoleID string
	removers    []func()
}

// New creates an adapter. The session is not opened until Open.
func New(cfg config.DiscordConfig, logger *zap.Logger) (*Adapter, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages
	return &Adapter{session: session, cfg: cfg, logger: logger}, nil
}

// Bind sets the core that receives interactions. It must be called before
// Open.
func (a *Adapter) Bind(h Handler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = h
}

// Open connects to the gateway, resolves the admin role and registers the
// slash commands of the guild.
func (a *Adapter) Open(ctx context.Context) error {
	a.removers = append(a.removers,
		a.session.AddHandler(a.onInteraction),
		a.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
			a.logger.Info("connected to discord",
				zap.String("user", r.User.Username),
				zap.Int("guilds", len(r.Guilds)),
			)
		}),
	)
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	if err := a.resolveAdminRole(ctx); err != nil {
		return err
	}
	if _, err := a.session.ApplicationCommandBulkOverwrite(
		a.session.State.User.ID, a.cfg.GuildID, Commands(), discordgo.WithContext(ctx),
	); err != nil {
		return fmt.Errorf("discord: register commands: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (a *Adapter) Close() error {
	for _, remove := range a.removers {
		remove()
	}
	a.removers = nil
	return a.session.Close()
}

// HealthCheck fails until the gateway session has received READY.
func (a *Adapter) HealthCheck(context.Context) error {
	a.session.RLock()
	defer a.session.RUnlock()
	if !a.session.DataReady {
		return errors.New("discord: gateway session not ready")
	}
	return nil
}

// resolveAdminRole maps the configured admin role name to its id. A value
// that already is a role id is accepted as is.
func (a *Adapter) resolveAdminRole(ctx context.Context) error {
	if a.cfg.AdminRole == "" {
		return nil
	}
	roles, err := a.session.GuildRoles(a.cfg.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: list guild roles: %w", err)
	}
	id := RoleID(roles, a.cfg.AdminRole)
	if id == "" {
		a.logger.Warn("admin role not found in guild; only owners can moderate",
			zap.String("admin_role", a.cfg.AdminRole))
	}
	a.mu.Lock()
	a.adminRoleID = id
	a.mu.Unlock()
	return nil
}

// RoleID returns the id of the role named or identified by nameOrID.
func RoleID(roles []*discordgo.Role, nameOrID string) string {
	for _, r := range roles {
		if r.ID == nameOrID || r.Name == nameOrID {
			return r.ID
		}
	}
	return ""
}

// CanModerate reports whether the member holds the admin role or is an
// owner.
func CanModerate(userID string, roles []string, adminRoleID string, owners []string) bool {
	if slices.Contains(owners, userID) {
		return true
	}
	return adminRoleID != "" && slices.Contains(roles, adminRoleID)
}

// interactionContext builds the core context of an interaction.
func (a *Adapter) interactionContext(i *discordgo.InteractionCreate) *model.InteractionContext {
	ictx := &model.InteractionContext{
		InteractionID: i.ID,
		CorrelationID: uuid.NewString(),
		ChannelID:     i.ChannelID,
		GuildID:       i.GuildID,
		Token:         i.Token,
	}
	var roles []string
	switch {
	case i.Member != nil && i.Member.User != nil:
		ictx.ActorID = i.Member.User.ID
		ictx.ActorName = i.Member.User.Username
		roles = i.Member.Roles
	case i.User != nil:
		ictx.ActorID = i.User.ID
		ictx.ActorName = i.User.Username
	}

	a.mu.RLock()
	adminRoleID := a.adminRoleID
	a.mu.RUnlock()
	ictx.CanModerate = CanModerate(ictx.ActorID, roles, adminRoleID, a.cfg.OwnerIDs)
	return ictx
}

func (a *Adapter) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ictx := a.interactionContext(i)
	logger := a.logger.With(
		zap.String("interaction_id", ictx.InteractionID),
		zap.String("correlation_id", ictx.CorrelationID),
		zap.String("actor_id", ictx.ActorID),
	)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic recovered in interaction handler", zap.Any("error", rec))
		}
	}()

	a.mu.RLock()
	h := a.handler
	a.mu.RUnlock()
	if h == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()
	ctx = model.WithInteractionContext(ctx, ictx)

	var resp *discordgo.InteractionResponse
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		resp = a.runCommand(ctx, h, i.ApplicationCommandData().Name, ictx, logger)
	case discordgo.InteractionMessageComponent, discordgo.InteractionModalSubmit:
		customID, input := Input(i)
		reply, handled, err := h.HandleInteraction(ctx, customID, input)
		if !handled {
			return
		}
		if err != nil {
			logger.Error("unhandled failure", zap.String("custom_id", customID), zap.Error(err))
			resp = Notice(failureNotice)
		} else {
			resp = Response(reply)
		}
	default:
		return
	}

	if err := s.InteractionRespond(i.Interaction, resp, discordgo.WithContext(ctx)); err != nil {
		logger.Warn("interaction response failed", zap.Error(err))
	}
}

// --- bot.Platform ---

// UserMention implements review.Mentioner.
func (a *Adapter) UserMention(id string) string { return "<@" + id + ">" }

// RoleMention implements review.Mentioner.
func (a *Adapter) RoleMention(id string) string { return "<@&" + id + ">" }

// ChannelMention implements review.Mentioner.
func (a *Adapter) ChannelMention(id string) string { return "<#" + id + ">" }

// PostReview sends a review message to the log channel.
func (a *Adapter) PostReview(ctx context.Context, channelID string, view model.MessageView) error {
	_, err := a.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     Embeds(view),
		Components: Components(view.Components),
	}, discordgo.WithContext(ctx))
	return err
}

// CreateForumThread opens a post in the configured forum channel.
func (a *Adapter) CreateForumThread(ctx context.Context, thread review.ForumThread) (string, error) {
	tagIDs := make([]string, len(thread.Tags))
	for i, t := range thread.Tags {
		tagIDs[i] = string(t.ID)
	}
	ch, err := a.session.ForumThreadStartComplex(a.cfg.ForumChannelID,
		&discordgo.ThreadStart{
			Name:        truncate(thread.Title, 100),
			AppliedTags: tagIDs,
		},
		&discordgo.MessageSend{
			Content: thread.Content,
			Embeds:  Embeds(thread.View),
		},
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

// ForumTags lists the tags available in the forum channel.
func (a *Adapter) ForumTags(ctx context.Context) ([]model.ForumTag, error) {
	ch, err := a.session.Channel(a.cfg.ForumChannelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	tags := make([]model.ForumTag, len(ch.AvailableTags))
	for i, t := range ch.AvailableTags {
		tags[i] = model.ForumTag{ID: model.TagID(t.ID), Name: t.Name, Emoji: t.EmojiName}
	}
	return tags, nil
}

// DirectMessage sends view to the user's DM channel.
func (a *Adapter) DirectMessage(ctx context.Context, userID string, view model.MessageView) error {
	ch, err := a.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = a.session.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{Embeds: Embeds(view)}, discordgo.WithContext(ctx))
	return err
}

// MemberName returns the guild display name of a member.
func (a *Adapter) MemberName(ctx context.Context, userID string) (string, error) {
	m, err := a.session.GuildMember(a.cfg.GuildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return DisplayName(m), nil
}

// DisplayName prefers the guild nickname, then the global display name.
func DisplayName(m *discordgo.Member) string {
	switch {
	case m.Nick != "":
		return m.Nick
	case m.User == nil:
		return ""
	case m.User.GlobalName != "":
		return m.User.GlobalName
	default:
		return m.User.Username
	}
}

// ExpireSession replaces the ephemeral questionnaire message.
func (a *Adapter) ExpireSession(ctx context.Context, token string, view model.MessageView) error {
	embeds := Embeds(view)
	components := Components(view.Components)
	_, err := a.session.WebhookMessageEdit(a.session.State.User.ID, token, "@original", &discordgo.WebhookEdit{
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx))
	return err
}
