package orchestrator

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"musicchain/native/albums"
	"musicchain/native/fees"
	"musicchain/native/songs"
	"musicchain/native/splits"
	"musicchain/native/users"
)

// StablecoinInfo describes the active stablecoin.
type StablecoinInfo struct {
	Address  ethcommon.Address
	Symbol   string
	Decimals uint8
	Pending  *Proposal
}

// GetPriceWithFee quotes the buyer-facing price of net at the current fee.
func (e *Engine) GetPriceWithFee(net *uint256.Int) (total, fee *uint256.Int, err error) {
	err = e.view(func() error {
		bps, err := e.feeBps()
		if err != nil {
			return err
		}
		quote, err := fees.PriceWithFee(net, bps)
		if err != nil {
			return err
		}
		total, fee = quote.Total, quote.Fee
		return nil
	})
	return total, fee, err
}

// GetPercentageFee returns the platform fee in basis points.
func (e *Engine) GetPercentageFee() (uint64, error) {
	var bps uint64
	err := e.view(func() error {
		var err error
		bps, err = e.feeBps()
		return err
	})
	return bps, err
}

// GetStablecoinAddress returns the active stablecoin address.
func (e *Engine) GetStablecoinAddress() (ethcommon.Address, error) {
	var addr ethcommon.Address
	err := e.view(func() error {
		var err error
		addr, err = e.stablecoinAddress()
		return err
	})
	return addr, err
}

// GetStablecoinInfo describes the active stablecoin and any pending rotation.
func (e *Engine) GetStablecoinInfo() (StablecoinInfo, error) {
	var info StablecoinInfo
	err := e.view(func() error {
		token, err := e.token()
		if err != nil {
			return err
		}
		info.Address = token.Address()
		info.Symbol = token.Symbol()
		info.Decimals = token.Decimals()
		info.Pending, err = e.loadProposal()
		return err
	})
	return info, err
}

// GetAmountCollectedInFees returns the fee pool. Administrator only.
func (e *Engine) GetAmountCollectedInFees(caller ethcommon.Address) (*uint256.Int, error) {
	var pool *uint256.Int
	err := e.view(func() error {
		if err := e.requireAdmin(caller); err != nil {
			return err
		}
		var err error
		pool, err = e.feePool()
		return err
	})
	return pool, err
}

// GetNewOrchestratorAddress returns the successor set by migration, or the
// zero address.
func (e *Engine) GetNewOrchestratorAddress() (ethcommon.Address, error) {
	var addr ethcommon.Address
	err := e.view(func() error {
		m, err := e.loadMigration()
		if err != nil || m == nil {
			return err
		}
		addr = m.NewOrchestrator
		return nil
	})
	return addr, err
}

// GetDatabaseAddresses returns the bound database addresses, or nil before
// SetDatabaseAddresses.
func (e *Engine) GetDatabaseAddresses() (*Binding, error) {
	var b *Binding
	err := e.view(func() error {
		var err error
		b, err = e.loadBinding()
		return err
	})
	return b, err
}

func (e *Engine) GetUserDatabaseAddress() ethcommon.Address     { return e.stores.BindingOf().Users }
func (e *Engine) GetSongDatabaseAddress() ethcommon.Address     { return e.stores.BindingOf().Songs }
func (e *Engine) GetAlbumDatabaseAddress() ethcommon.Address    { return e.stores.BindingOf().Albums }
func (e *Engine) GetSplitterDatabaseAddress() ethcommon.Address { return e.stores.BindingOf().Splits }

// Version reports the orchestrator release.
func (e *Engine) Version() string { return Version }

// GetUser returns the user record of id.
func (e *Engine) GetUser(id uint64) (*users.User, error) {
	var u *users.User
	err := e.view(func() error {
		var err error
		u, err = e.stores.Users.Get(id)
		return err
	})
	return u, err
}

// GetUserIDByAddress resolves addr to a user id, or 0.
func (e *Engine) GetUserIDByAddress(addr ethcommon.Address) (uint64, error) {
	var id uint64
	err := e.view(func() error {
		var err error
		id, err = e.stores.Users.IDByAddress(addr)
		return err
	})
	return id, err
}

// GetSong returns the song record of id.
func (e *Engine) GetSong(id uint64) (*songs.Song, error) {
	var s *songs.Song
	err := e.view(func() error {
		var err error
		s, err = e.stores.Songs.Get(id)
		return err
	})
	return s, err
}

// GetAlbum returns the album record of id.
func (e *Engine) GetAlbum(id uint64) (*albums.Album, error) {
	var a *albums.Album
	err := e.view(func() error {
		var err error
		a, err = e.stores.Albums.Get(id)
		return err
	})
	return a, err
}

// GetSplit returns the configured shares of (kind, id), or nil.
func (e *Engine) GetSplit(kind splits.EntityKind, id uint64) ([]splits.Share, error) {
	var shares []splits.Share
	err := e.view(func() error {
		var err error
		shares, err = e.stores.Splits.Shares(kind, id)
		return err
	})
	return shares, err
}

// OwnsSong reports whether userID owns songID.
func (e *Engine) OwnsSong(songID, userID uint64) (bool, error) {
	var owned bool
	err := e.view(func() error {
		var err error
		owned, err = e.stores.Songs.IsOwner(songID, userID)
		return err
	})
	return owned, err
}

// OwnsAlbum reports whether userID owns albumID.
func (e *Engine) OwnsAlbum(albumID, userID uint64) (bool, error) {
	var owned bool
	err := e.view(func() error {
		var err error
		owned, err = e.stores.Albums.IsOwner(albumID, userID)
		return err
	})
	return owned, err
}
