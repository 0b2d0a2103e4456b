/**
 * @description
 * This file contains the payment router: the component that moves money
 * between the guild treasury and the shop flows. Purchases withdraw from the
 * treasury; shop income arrives in a secondary per-owner balance first and is
 * moved into the treasury with a compensating transaction: if the treasury
 * deposit fails after the secondary withdrawal succeeded, the amount is
 * refunded to the secondary balance so funds never vanish or double-exist
 * across the two ledgers.
 *
 * @dependencies
 * - internal/domain, internal/store: Domain models and ledger logging.
 * - pkg/treasuryclient: Error sentinels for treasury failures.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/lumalyte/guildshop-service/internal/domain"
	"github.com/lumalyte/guildshop-service/internal/store"
	"github.com/lumalyte/guildshop-service/pkg/treasuryclient"
)

// Treasury is the external treasury collaborator. The vault methods operate
// on a guild's shared balance; the secondary methods operate on the
// per-owner balance where the marketplace initially credits shop income.
// Deposit calls accept an idempotency key so a retried call cannot apply twice.
type Treasury interface {
	WithdrawFromVault(ctx context.Context, guildID uuid.UUID, amount int64, reason string) (remaining int64, err error)
	DepositToVault(ctx context.Context, guildID uuid.UUID, amount int64, reason, idempotencyKey string) (newBalance int64, err error)
	WithdrawSecondary(ctx context.Context, holderID uuid.UUID, amount int64, reason string) (remaining int64, err error)
	DepositSecondary(ctx context.Context, holderID uuid.UUID, amount int64, reason, idempotencyKey string) (newBalance int64, err error)
}

// PaymentRouter moves funds between the treasury and the shop flows.
type PaymentRouter struct {
	treasury        Treasury
	repo            store.Repository
	minBalanceAfter int64
}

// NewPaymentRouter creates a payment router. minBalanceAfter is the advisory
// treasury floor: withdrawals that leave less than this behind log a warning
// but are not reversed.
func NewPaymentRouter(treasury Treasury, repo store.Repository, minBalanceAfter int64) *PaymentRouter {
	return &PaymentRouter{
		treasury:        treasury,
		repo:            repo,
		minBalanceAfter: minBalanceAfter,
	}
}

// Withdraw takes funds out of a guild's treasury, typically to pay for a zone
// purchase. The outcome is always a value; a failure reason distinguishes
// insufficient funds from a missing guild or an unreachable treasury.
func (r *PaymentRouter) Withdraw(ctx context.Context, guildID uuid.UUID, amount int64, reason string) domain.WithdrawalOutcome {
	remaining, err := r.treasury.WithdrawFromVault(ctx, guildID, amount, reason)
	if err != nil {
		log.Printf("level=warn component=payment_router msg=\"treasury withdrawal failed\" guild_id=%s amount=%d reason=%q err=%v", guildID, amount, reason, err)
		return domain.WithdrawalOutcome{Success: false, Reason: withdrawalFailureReason(err)}
	}

	if remaining < r.minBalanceAfter {
		// The funds have already left the treasury; the floor is advisory only.
		log.Printf("level=warn component=payment_router msg=\"treasury balance below minimum after withdrawal\" guild_id=%s remaining=%d minimum=%d", guildID, remaining, r.minBalanceAfter)
	}

	log.Printf("level=info component=payment_router msg=\"treasury withdrawal complete\" guild_id=%s amount=%d remaining=%d reason=%q", guildID, amount, remaining, reason)
	return domain.WithdrawalOutcome{Success: true, RemainingBalance: remaining}
}

// RefundPurchase returns a purchase withdrawal to the guild treasury after a
// downstream registration failure. The zone key makes the idempotency key
// stable, so repeating the compensation cannot credit the vault twice.
func (r *PaymentRouter) RefundPurchase(ctx context.Context, guildID uuid.UUID, amount int64, zoneID string) {
	key := "purchase-refund:" + guildID.String() + ":" + zoneID
	if _, err := r.treasury.DepositToVault(ctx, guildID, amount, "refund: zone registration failed for "+zoneID, key); err != nil {
		log.Printf("level=error component=payment_router msg=\"purchase refund failed\" guild_id=%s zone_id=%s amount=%d idempotency_key=%s err=%v",
			guildID, zoneID, amount, key, err)
		return
	}
	log.Printf("level=info component=payment_router msg=\"purchase refunded to treasury\" guild_id=%s zone_id=%s amount=%d", guildID, zoneID, amount)
}

// RouteIncome moves a completed sale's proceeds from the owner's secondary
// balance into the guild treasury:
//
//  1. Withdraw the amount from the secondary balance. If it lacks the funds,
//     abort with no treasury mutation.
//  2. Deposit the amount into the treasury. If this fails, refund the
//     secondary balance to restore the pre-operation state, retrying once
//     with the sale-derived idempotency key, and report failure.
//
// A successful deposit appends an INCOME ledger entry (best-effort).
func (r *PaymentRouter) RouteIncome(ctx context.Context, sale domain.ShopSaleCompletedEvent) domain.DepositOutcome {
	reason := fmt.Sprintf("shop sale: %s", sale.Item)

	if _, err := r.treasury.WithdrawSecondary(ctx, sale.OwnerID, sale.PricePaid, reason); err != nil {
		log.Printf("level=warn component=payment_router msg=\"income routing aborted; secondary withdrawal failed\" owner_id=%s sale_id=%s amount=%d err=%v",
			sale.OwnerID, sale.SaleID, sale.PricePaid, err)
		return domain.DepositOutcome{Success: false, Reason: withdrawalFailureReason(err)}
	}

	depositKey := "income:" + sale.SaleID.String()
	newBalance, err := r.treasury.DepositToVault(ctx, sale.OwnerID, sale.PricePaid, reason, depositKey)
	if err != nil {
		r.refundSecondary(ctx, sale)
		return domain.DepositOutcome{Success: false, Reason: "treasury deposit failed; secondary balance refunded"}
	}

	r.appendIncomeLedger(ctx, sale, reason)

	log.Printf("level=info component=payment_router msg=\"income routed to treasury\" owner_id=%s sale_id=%s amount=%d new_balance=%d",
		sale.OwnerID, sale.SaleID, sale.PricePaid, newBalance)
	return domain.DepositOutcome{Success: true, NewBalance: newBalance}
}

// refundSecondary compensates a failed treasury deposit by restoring the
// secondary balance. The idempotency key is derived from the sale, so the
// single retry cannot double-refund.
func (r *PaymentRouter) refundSecondary(ctx context.Context, sale domain.ShopSaleCompletedEvent) {
	refundKey := "refund:" + sale.SaleID.String()
	refundReason := fmt.Sprintf("refund for failed income routing: %s", sale.Item)

	_, err := r.treasury.DepositSecondary(ctx, sale.OwnerID, sale.PricePaid, refundReason, refundKey)
	if err != nil {
		log.Printf("level=warn component=payment_router msg=\"refund failed; retrying once\" owner_id=%s sale_id=%s amount=%d err=%v",
			sale.OwnerID, sale.SaleID, sale.PricePaid, err)
		if _, err = r.treasury.DepositSecondary(ctx, sale.OwnerID, sale.PricePaid, refundReason, refundKey); err != nil {
			log.Printf("level=error component=payment_router msg=\"refund retry failed; funds stranded outside both ledgers\" owner_id=%s sale_id=%s amount=%d idempotency_key=%s err=%v",
				sale.OwnerID, sale.SaleID, sale.PricePaid, refundKey, err)
			return
		}
	}
	log.Printf("level=info component=payment_router msg=\"secondary balance refunded after deposit failure\" owner_id=%s sale_id=%s amount=%d",
		sale.OwnerID, sale.SaleID, sale.PricePaid)
}

func (r *PaymentRouter) appendIncomeLedger(ctx context.Context, sale domain.ShopSaleCompletedEvent, reason string) {
	buyerID := sale.BuyerID
	entry := &domain.LedgerEntry{
		OwnerID:     sale.OwnerID,
		ZoneID:      sale.ZoneID,
		Kind:        domain.LedgerKindIncome,
		Amount:      sale.PricePaid,
		Description: reason,
		ActorID:     &buyerID,
	}
	if err := r.repo.AppendLedger(ctx, entry); err != nil {
		log.Printf("level=warn component=payment_router msg=\"income ledger append failed\" owner_id=%s sale_id=%s err=%v", sale.OwnerID, sale.SaleID, err)
	}
}

// withdrawalFailureReason translates a treasury client error into the store
// error taxonomy and reports its message, so callers and API consumers see
// one vocabulary regardless of which layer failed.
func withdrawalFailureReason(err error) string {
	switch {
	case errors.Is(err, treasuryclient.ErrInsufficientFunds):
		return store.ErrInsufficientFunds.Error()
	case errors.Is(err, treasuryclient.ErrGuildNotFound):
		return store.ErrGuildNotFound.Error()
	case errors.Is(err, treasuryclient.ErrUnavailable):
		return store.ErrTreasuryUnavailable.Error()
	default:
		return err.Error()
	}
}
