package domain

import (
	"time"

	"github.com/google/uuid"
)

// RelationChangedEvent is the message emitted by the guild platform when the
// relation between two guilds changes.
type RelationChangedEvent struct {
	EventID    string       `json:"event_id"`
	GuildA     uuid.UUID    `json:"guild_a"`
	GuildB     uuid.UUID    `json:"guild_b"`
	Relation   RelationType `json:"relation"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// ShopSaleCompletedEvent is the post-transaction notice emitted by the region
// marketplace after a completed sale inside a zone. It drives the income half
// of the payment router. SaleID is stable per sale and doubles as the
// idempotency key for the refund path.
type ShopSaleCompletedEvent struct {
	SaleID     uuid.UUID `json:"sale_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	ZoneID     string    `json:"zone_id"`
	Namespace  string    `json:"namespace"`
	Item       string    `json:"item"`
	PricePaid  int64     `json:"price_paid"`
	OccurredAt time.Time `json:"occurred_at"`
}

// GuildDisbandedEvent is emitted by the guild platform when a guild ceases to
// exist. All of its zones and ledger history are purged in response.
type GuildDisbandedEvent struct {
	GuildID    uuid.UUID `json:"guild_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
