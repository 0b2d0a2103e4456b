package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/lumalyte/guildshop-service/pkg/relationclient"
)

// RelationAuthority adapts the relation-authority HTTP client to the
// Relations interface.
type RelationAuthority struct {
	client *relationclient.Client
}

// NewRelationAuthority wraps a relation-authority client.
func NewRelationAuthority(client *relationclient.Client) *RelationAuthority {
	return &RelationAuthority{client: client}
}

func (a *RelationAuthority) EnemiesOf(ctx context.Context, guildID uuid.UUID) ([]uuid.UUID, error) {
	return a.client.EnemiesOf(ctx, guildID)
}

func (a *RelationAuthority) GuildsOf(ctx context.Context, memberID uuid.UUID) ([]uuid.UUID, error) {
	return a.client.GuildsOf(ctx, memberID)
}

func (a *RelationAuthority) HasPermission(ctx context.Context, memberID, guildID uuid.UUID, permission string) (bool, error) {
	return a.client.HasPermission(ctx, memberID, guildID, permission)
}
