package albums

import (
	"musicchain/core/events"
	"musicchain/core/types"
)

const (
	EventTypeRegistered    = "album.registered"
	EventTypeChanged       = "album.changed"
	EventTypePurchasable   = "album.purchasable.changed"
	EventTypePriceChanged  = "album.price.changed"
	EventTypePurchased     = "album.purchased"
	EventTypeGifted        = "album.gifted"
	EventTypeRefunded      = "album.refunded"
	EventTypeBannedChanged = "album.banned.changed"
)

func albumEvent(eventType string, a *Album) *types.Event {
	attrs := map[string]string{
		"albumId":         events.FormatID(a.ID),
		"principalArtist": events.FormatID(a.PrincipalArtistID),
		"title":           a.Title,
		"songIds":         events.FormatIDs(a.SongIDs),
		"purchasable":     events.FormatBool(a.Purchasable),
		"netPrice":        events.FormatAmount(a.NetPrice),
	}
	if a.SpecialEdition {
		attrs["specialEdition"] = a.SpecialEditionName
		attrs["maxSupply"] = events.FormatID(a.MaxSupply)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func ownershipEvent(eventType string, a *Album, userID uint64) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"albumId":       events.FormatID(a.ID),
			"userId":        events.FormatID(userID),
			"purchaseCount": events.FormatID(a.PurchaseCount),
		},
	}
}

func bannedEvent(id uint64, banned bool) *types.Event {
	return &types.Event{
		Type: EventTypeBannedChanged,
		Attributes: map[string]string{
			"albumId": events.FormatID(id),
			"banned":  events.FormatBool(banned),
		},
	}
}
