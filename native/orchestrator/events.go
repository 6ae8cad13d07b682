package orchestrator

import (
	"strconv"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"musicchain/core/events"
	"musicchain/core/types"
	"musicchain/native/fees"
)

const (
	EventTypeDatabasesSet       = "orchestrator.databases.set"
	EventTypeFundsDeposited     = "orchestrator.funds.deposited"
	EventTypeFundsWithdrawn     = "orchestrator.funds.withdrawn"
	EventTypeDonation           = "orchestrator.donation"
	EventTypeSongPurchased      = "orchestrator.song.purchased"
	EventTypeAlbumPurchased     = "orchestrator.album.purchased"
	EventTypeSongGifted         = "orchestrator.song.gifted"
	EventTypeAlbumGifted        = "orchestrator.album.gifted"
	EventTypeRefunded           = "orchestrator.refunded"
	EventTypeFeeChanged         = "orchestrator.fee.changed"
	EventTypeFeesWithdrawn      = "orchestrator.fees.withdrawn"
	EventTypeFeesGiven          = "orchestrator.fees.given"
	EventTypeStablecoinProposed = "orchestrator.stablecoin.proposed"
	EventTypeStablecoinCanceled = "orchestrator.stablecoin.canceled"
	EventTypeStablecoinChanged  = "orchestrator.stablecoin.changed"
	EventTypeMigrated           = "orchestrator.migrated"
)

func databasesSetEvent(b Binding) *types.Event {
	return &types.Event{
		Type: EventTypeDatabasesSet,
		Attributes: map[string]string{
			"users":  events.FormatAddress(b.Users),
			"songs":  events.FormatAddress(b.Songs),
			"albums": events.FormatAddress(b.Albums),
			"splits": events.FormatAddress(b.Splits),
		},
	}
}

func fundsEvent(eventType string, fromUser, toUser uint64, amount *uint256.Int) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"fromUserId": events.FormatID(fromUser),
			"toUserId":   events.FormatID(toUser),
			"amount":     events.FormatAmount(amount),
		},
	}
}

func purchaseEvent(eventType string, itemID, buyerID uint64, charge fees.Charge) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"itemId":  events.FormatID(itemID),
			"buyerId": events.FormatID(buyerID),
			"net":     events.FormatAmount(charge.Net),
			"fee":     events.FormatAmount(charge.Fee),
			"tip":     events.FormatAmount(charge.Tip),
			"debit":   events.FormatAmount(charge.Debit),
		},
	}
}

func giftEvent(eventType string, itemID, artistID, recipientID uint64) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"itemId":      events.FormatID(itemID),
			"artistId":    events.FormatID(artistID),
			"recipientId": events.FormatID(recipientID),
		},
	}
}

func refundEvent(kind string, itemID, userID uint64, amount *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeRefunded,
		Attributes: map[string]string{
			"kind":   kind,
			"itemId": events.FormatID(itemID),
			"userId": events.FormatID(userID),
			"amount": events.FormatAmount(amount),
		},
	}
}

func feeChangedEvent(previous, next uint64) *types.Event {
	return &types.Event{
		Type: EventTypeFeeChanged,
		Attributes: map[string]string{
			"previousBps": strconv.FormatUint(previous, 10),
			"bps":         strconv.FormatUint(next, 10),
		},
	}
}

func feesMovedEvent(eventType, recipient string, amount, remaining *uint256.Int) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"recipient": recipient,
			"amount":    events.FormatAmount(amount),
			"remaining": events.FormatAmount(remaining),
		},
	}
}

func stablecoinEvent(eventType string, address ethcommon.Address, executeAfter uint64) *types.Event {
	attrs := map[string]string{"address": events.FormatAddress(address)}
	if executeAfter != 0 {
		attrs["executeAfter"] = strconv.FormatUint(executeAfter, 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func migratedEvent(m Migration, collected, custody *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeMigrated,
		Attributes: map[string]string{
			"newOrchestrator": events.FormatAddress(m.NewOrchestrator),
			"feeRecipient":    events.FormatAddress(m.FeeRecipient),
			"fees":            events.FormatAmount(collected),
			"custody":         events.FormatAmount(custody),
		},
	}
}
