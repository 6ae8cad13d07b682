package songs

import (
	"musicchain/core/events"
	"musicchain/core/types"
)

const (
	EventTypeRegistered    = "song.registered"
	EventTypeChanged       = "song.changed"
	EventTypePurchasable   = "song.purchasable.changed"
	EventTypePriceChanged  = "song.price.changed"
	EventTypePurchased     = "song.purchased"
	EventTypeGifted        = "song.gifted"
	EventTypeRefunded      = "song.refunded"
	EventTypeAlbumAssigned = "song.album.assigned"
	EventTypeAlbumReleased = "song.album.released"
	EventTypeBannedChanged = "song.banned.changed"
)

func songEvent(eventType string, s *Song) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"songId":          events.FormatID(s.ID),
			"principalArtist": events.FormatID(s.PrincipalArtistID),
			"title":           s.Title,
			"purchasable":     events.FormatBool(s.Purchasable),
			"netPrice":        events.FormatAmount(s.NetPrice),
		},
	}
}

func ownershipEvent(eventType string, s *Song, userID uint64) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"songId":        events.FormatID(s.ID),
			"userId":        events.FormatID(userID),
			"purchaseCount": events.FormatID(s.PurchaseCount),
		},
	}
}

func albumEvent(eventType string, ids []uint64, albumID uint64) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"songIds": events.FormatIDs(ids),
			"albumId": events.FormatID(albumID),
		},
	}
}

func bannedEvent(ids []uint64, banned bool) *types.Event {
	return &types.Event{
		Type: EventTypeBannedChanged,
		Attributes: map[string]string{
			"songIds": events.FormatIDs(ids),
			"banned":  events.FormatBool(banned),
		},
	}
}
