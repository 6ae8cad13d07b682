package events

import (
	"strconv"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// FormatID renders a numeric identifier attribute.
func FormatID(id uint64) string { return strconv.FormatUint(id, 10) }

// FormatAmount renders a token amount in base units; nil renders as zero.
func FormatAmount(amount *uint256.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.Dec()
}

// FormatAddress renders an address in checksummed hex.
func FormatAddress(addr ethcommon.Address) string { return addr.Hex() }

// FormatBool renders a flag attribute.
func FormatBool(v bool) string { return strconv.FormatBool(v) }

// FormatIDs renders a list of identifiers as a comma separated string.
func FormatIDs(ids []uint64) string {
	buf := make([]byte, 0, len(ids)*4)
	for i, id := range ids {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendUint(buf, id, 10)
	}
	return string(buf)
}
