package splits

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// EntityKind names what a split is attached to.
type EntityKind uint8

const (
	EntityUser EntityKind = iota + 1
	EntitySong
)

func (k EntityKind) String() string {
	switch k {
	case EntityUser:
		return "user"
	case EntitySong:
		return "song"
	default:
		return fmt.Sprintf("entity(%d)", uint8(k))
	}
}

// ParseEntityKind accepts the names produced by String.
func ParseEntityKind(raw string) (EntityKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "user":
		return EntityUser, nil
	case "song":
		return EntitySong, nil
	default:
		return 0, fmt.Errorf("splits: unknown entity kind %q", raw)
	}
}

// RecipientKind distinguishes artists, who accrue royalties, from plain users.
type RecipientKind uint8

const (
	RecipientArtist RecipientKind = iota + 1
	RecipientUser
)

func (k RecipientKind) String() string {
	switch k {
	case RecipientArtist:
		return "artist"
	case RecipientUser:
		return "user"
	default:
		return fmt.Sprintf("recipient(%d)", uint8(k))
	}
}

// ParseRecipientKind accepts the names produced by String.
func ParseRecipientKind(raw string) (RecipientKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "artist":
		return RecipientArtist, nil
	case "user":
		return RecipientUser, nil
	default:
		return 0, fmt.Errorf("splits: unknown recipient kind %q", raw)
	}
}

// Share is one recipient's cut in basis points.
type Share struct {
	RecipientKind RecipientKind
	RecipientID   uint64
	Bps           uint64
}

// Config is the persisted split of one entity.
type Config struct {
	Shares []Share
}

// Payout is the amount owed to one recipient by CalculateSplit. A payout with
// RecipientID 0 stands for the principal of the split entity.
type Payout struct {
	RecipientKind RecipientKind
	RecipientID   uint64
	Amount        *uint256.Int
}

// Principal reports whether the payout is the sentinel principal entry.
func (p Payout) Principal() bool { return p.RecipientID == 0 }
