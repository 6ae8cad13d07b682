package splits

import (
	"strconv"

	"musicchain/core/events"
	"musicchain/core/types"
)

const (
	EventTypeRegistered = "split.registered"
	EventTypeChanged    = "split.changed"
)

func splitEvent(eventType string, kind EntityKind, id uint64, shares []Share) *types.Event {
	var total uint64
	for _, share := range shares {
		total += share.Bps
	}
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"entityKind": kind.String(),
			"entityId":   events.FormatID(id),
			"shares":     strconv.Itoa(len(shares)),
			"totalBps":   strconv.FormatUint(total, 10),
		},
	}
}
