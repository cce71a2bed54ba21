package triggers

import (
	"context"
	"errors"

	"github.com/callummance/hibiki/guildmodels"
	"github.com/samber/mo"
)

//ErrInvalid is wrapped by errors caused by bad input to a mutation, as opposed to store failures
var ErrInvalid = errors.New("invalid trigger")

//Store persists trigger definitions. Implementations assign IDs on Insert and must never reuse them.
type Store interface {
	LoadAll(ctx context.Context) ([]guildmodels.Trigger, error)
	Get(ctx context.Context, id int64) (mo.Option[guildmodels.Trigger], error)
	Insert(ctx context.Context, t guildmodels.Trigger) (int64, error)
	//Update overwrites a trigger, returning false if it no longer exists
	Update(ctx context.Context, t guildmodels.Trigger) (bool, error)
	//Delete removes a trigger, returning false if no such trigger existed
	Delete(ctx context.Context, id int64) (bool, error)
	//DeleteAllForGuild removes every trigger owned by a guild. An empty guildID removes all global triggers.
	DeleteAllForGuild(ctx context.Context, guildID string) (int, error)
}
