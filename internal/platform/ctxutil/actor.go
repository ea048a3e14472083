package ctxutil

import (
	"context"

	"github.com/yungbote/commentree-backend/internal/domain"
)

type actorDataKey struct{}

// ActorData carries the authenticated actor through the request context.
type ActorData struct {
	Actor       domain.ActorRef
	TokenString string
}

func WithActorData(ctx context.Context, ad *ActorData) context.Context {
	return context.WithValue(ctx, actorDataKey{}, ad)
}

func GetActorData(ctx context.Context) *ActorData {
	val := ctx.Value(actorDataKey{})
	if ad, ok := val.(*ActorData); ok {
		return ad
	}
	return nil
}
