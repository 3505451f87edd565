package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/pitabwire/irrbot/model"
)

// Slash command names.
const (
	CommandSendButton = "sendbutton"
	CommandForumTags  = "forumtags"
	CommandPending    = "pending"
)

const forbiddenNotice = "You do not have permission to use this command."

// Commands returns the guild slash commands of the bot.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: CommandSendButton, Description: "Post the protest button in this channel"},
		{Name: CommandForumTags, Description: "List the tags of the protest forum"},
		{Name: CommandPending, Description: "List submissions waiting for review"},
	}
}

// runCommand executes an admin slash command. Every command requires
// moderation rights.
func (a *Adapter) runCommand(
	ctx context.Context,
	h Handler,
	name string,
	ictx *model.InteractionContext,
	logger *zap.Logger,
) *discordgo.InteractionResponse {
	logger = logger.With(zap.String("command", name))
	if !ictx.CanModerate {
		logger.Warn("command denied")
		return Notice(forbiddenNotice)
	}

	reply, err := commandReply(ctx, h, name)
	if err != nil {
		logger.Error("unhandled failure", zap.Error(err))
		return Notice(failureNotice)
	}
	logger.Debug("command handled")
	return Response(reply)
}

func commandReply(ctx context.Context, h Handler, name string) (model.Reply, error) {
	switch name {
	case CommandSendButton:
		return model.MessageReply(h.StartButton(), false), nil
	case CommandForumTags:
		view, err := h.ForumTagsReport(ctx)
		if err != nil {
			return model.Reply{}, err
		}
		return model.MessageReply(view, true), nil
	case CommandPending:
		view, err := h.PendingReport(ctx)
		if err != nil {
			return model.Reply{}, err
		}
		return model.MessageReply(view, true), nil
	default:
		return model.NoticeReply("Unknown command."), nil
	}
}
