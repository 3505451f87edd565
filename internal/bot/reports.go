package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pitabwire/irrbot/internal/review"
	"github.com/pitabwire/irrbot/internal/store"
	"github.com/pitabwire/irrbot/model"
)

// ForumTagsView renders the forum tag listing.
func ForumTagsView(tags []model.ForumTag) model.MessageView {
	view := model.MessageView{Title: "Forum Tags", Color: model.ColorRegular}
	if len(tags) == 0 {
		view.Description = "No tags found."
		return view
	}
	lines := make([]string, len(tags))
	for i, tag := range tags {
		name := "**" + tag.Name + "**"
		if tag.Emoji != "" {
			name = tag.Emoji + " " + name
		}
		lines[i] = fmt.Sprintf("ID: `%s` %s", tag.ID, name)
	}
	view.Description = strings.Join(lines, "\n")
	return view
}

// Pending loads every stored submission, oldest first.
func Pending(ctx context.Context, submissions store.Table[model.Submission]) ([]model.Submission, error) {
	keys, err := submissions.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	subs := make([]model.Submission, 0, len(keys))
	for _, key := range keys {
		sub, ok, err := submissions.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load submission %s: %w", key, err)
		}
		if ok {
			subs = append(subs, sub)
		}
	}
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].CreatedAt < subs[j].CreatedAt })
	return subs, nil
}

// PendingView renders the pending submission listing.
func PendingView(subs []model.Submission, m review.Mentioner) model.MessageView {
	view := model.MessageView{Title: "Pending Submissions", Color: model.ColorRegular}
	if len(subs) == 0 {
		view.Description = "No pending submissions."
		return view
	}
	lines := make([]string, len(subs))
	for i, sub := range subs {
		lines[i] = fmt.Sprintf("`%s` %s <t:%d:R>", sub.ID, m.UserMention(sub.UserID), sub.CreatedAt)
	}
	view.Description = strings.Join(lines, "\n")
	return view
}
