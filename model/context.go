package model

import (
	"context"
	"errors"
	"fmt"
)

// InteractionContext carries the identity and tracing information of one
// platform interaction. It is immutable after construction and safe for
// concurrent reads.
type InteractionContext struct {
	InteractionID string
	CorrelationID string
	ActorID       string
	ActorName     string
	ChannelID     string
	GuildID       string
	// Token lets the platform edit the response to this interaction later.
	Token         string
	// CanModerate is true when the actor holds the moderator role.
	CanModerate   bool
}

// Validate checks that all mandatory fields are present.
func (ic *InteractionContext) Validate() error {
	var errs []error
	if ic.ActorID == "" {
		errs = append(errs, fmt.Errorf("ActorID is required"))
	}
	if ic.CorrelationID == "" {
		errs = append(errs, fmt.Errorf("CorrelationID is required"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

type contextKey struct{}

// WithInteractionContext attaches an InteractionContext to the given context.
func WithInteractionContext(ctx context.Context, ictx *InteractionContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ictx)
}

// InteractionContextFrom extracts the InteractionContext from the context, or
// returns nil if not present.
func InteractionContextFrom(ctx context.Context) *InteractionContext {
	ictx, _ := ctx.Value(contextKey{}).(*InteractionContext)
	return ictx
}

// ActorFrom returns the InteractionContext or an empty one, so callers can read
// fields without a nil check. An empty context cannot moderate.
func ActorFrom(ctx context.Context) InteractionContext {
	if ictx := InteractionContextFrom(ctx); ictx != nil {
		return *ictx
	}
	return InteractionContext{}
}
