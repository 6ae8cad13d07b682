package state

import (
	"encoding/hex"
	"fmt"
	"strconv"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Key joins a namespace and its parts into a state key such as
// "users/record/7". Numbers are rendered in decimal and addresses in
// lower-case hex so keys stay readable in database dumps.
func Key(namespace string, parts ...interface{}) []byte {
	buf := make([]byte, 0, len(namespace)+len(parts)*12)
	buf = append(buf, namespace...)
	for _, part := range parts {
		buf = append(buf, '/')
		switch v := part.(type) {
		case string:
			buf = append(buf, v...)
		case uint64:
			buf = strconv.AppendUint(buf, v, 10)
		case uint8:
			buf = strconv.AppendUint(buf, uint64(v), 10)
		case int:
			buf = strconv.AppendInt(buf, int64(v), 10)
		case ethcommon.Address:
			buf = append(buf, hex.EncodeToString(v[:])...)
		default:
			buf = fmt.Append(buf, v)
		}
	}
	return buf
}
