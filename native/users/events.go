package users

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"musicchain/core/events"
	"musicchain/core/types"
)

const (
	EventTypeRegistered       = "user.registered"
	EventTypeChanged          = "user.changed"
	EventTypeAddressChanged   = "user.address.changed"
	EventTypeBalanceChanged   = "user.balance.changed"
	EventTypeRoyaltiesChanged = "user.royalties.changed"
	EventTypeLibraryChanged   = "user.library.changed"
	EventTypeBannedChanged    = "user.banned.changed"
)

// Direction tags for balance and library deltas.
const (
	DirectionAdd    = "add"
	DirectionDeduct = "deduct"
	DirectionRemove = "remove"
)

func registeredEvent(u *User) *types.Event {
	return &types.Event{
		Type: EventTypeRegistered,
		Attributes: map[string]string{
			"userId":  events.FormatID(u.ID),
			"address": events.FormatAddress(u.Address),
			"name":    u.Name,
		},
	}
}

func changedEvent(u *User) *types.Event {
	return &types.Event{
		Type: EventTypeChanged,
		Attributes: map[string]string{
			"userId":      events.FormatID(u.ID),
			"name":        u.Name,
			"metadataUri": u.MetadataURI,
		},
	}
}

func addressChangedEvent(id uint64, previous, next ethcommon.Address) *types.Event {
	return &types.Event{
		Type: EventTypeAddressChanged,
		Attributes: map[string]string{
			"userId":   events.FormatID(id),
			"previous": events.FormatAddress(previous),
			"address":  events.FormatAddress(next),
		},
	}
}

func amountEvent(eventType string, id uint64, direction string, amount, total *uint256.Int) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"userId":    events.FormatID(id),
			"direction": direction,
			"amount":    events.FormatAmount(amount),
			"total":     events.FormatAmount(total),
		},
	}
}

func libraryEvent(id uint64, direction string, songIDs []uint64) *types.Event {
	return &types.Event{
		Type: EventTypeLibraryChanged,
		Attributes: map[string]string{
			"userId":    events.FormatID(id),
			"direction": direction,
			"songIds":   events.FormatIDs(songIDs),
		},
	}
}

func bannedEvent(id uint64, banned bool) *types.Event {
	return &types.Event{
		Type: EventTypeBannedChanged,
		Attributes: map[string]string{
			"userId": events.FormatID(id),
			"banned": events.FormatBool(banned),
		},
	}
}
