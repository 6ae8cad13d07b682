package main

import (
	"flag"
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"musicchain/native/albums"
	"musicchain/native/orchestrator"
	"musicchain/native/splits"
	"musicchain/rpc"
)

type action func(s *session) (interface{}, error)

type command struct {
	name    string
	summary string
	flags   func(fs *flag.FlagSet) action
}

type okResult struct {
	OK bool `json:"ok"`
}

type idResult struct {
	ID uint64 `json:"id"`
}

type infoResult struct {
	Version      string                 `json:"version"`
	Orchestrator string                 `json:"orchestrator"`
	Successor    string                 `json:"successor,omitempty"`
	FeeBps       uint64                 `json:"feeBps"`
	Stablecoin   rpc.StablecoinResponse `json:"stablecoin"`
	Databases    rpc.StoresResponse     `json:"databases"`
}

var done = okResult{OK: true}

var commands = map[string]command{}

func register(cmds ...command) {
	for _, c := range cmds {
		commands[c.name] = c
	}
}

// mutation wraps an entry point that needs a keystore caller.
func mutation(fn func(s *session, caller ethcommon.Address) error) action {
	return func(s *session) (interface{}, error) {
		caller, err := s.caller()
		if err != nil {
			return nil, err
		}
		if err := fn(s, caller); err != nil {
			return nil, err
		}
		return done, nil
	}
}

func songFlags(fs *flag.FlagSet) func() orchestrator.SongParams {
	title := fs.String("title", "", "song title")
	media := fs.String("media", "", "media URI")
	metadata := fs.String("metadata", "", "metadata URI")
	purchasable := fs.Bool("purchasable", false, "open for sale")
	featured := &idsFlag{}
	fs.Var(featured, "featured", "comma separated featured artist ids")
	price := &amountFlag{}
	fs.Var(price, "price", "net price in base units")
	return func() orchestrator.SongParams {
		return orchestrator.SongParams{
			Title:             *title,
			FeaturedArtistIDs: featured.values,
			MediaURI:          *media,
			MetadataURI:       *metadata,
			Purchasable:       *purchasable,
			NetPrice:          price.Int(),
		}
	}
}

func albumFlags(fs *flag.FlagSet) func() orchestrator.AlbumParams {
	title := fs.String("title", "", "album title")
	metadata := fs.String("metadata", "", "metadata URI")
	purchasable := fs.Bool("purchasable", false, "open for sale")
	special := fs.Bool("special", false, "special edition")
	edition := fs.String("edition", "", "special edition name")
	maxSupply := fs.Uint64("max-supply", 0, "special edition supply cap")
	songs := &idsFlag{}
	fs.Var(songs, "songs", "comma separated song ids")
	price := &amountFlag{}
	fs.Var(price, "price", "net price in base units")
	return func() orchestrator.AlbumParams {
		return orchestrator.AlbumParams{
			Title:       *title,
			MetadataURI: *metadata,
			SongIDs:     songs.values,
			NetPrice:    price.Int(),
			Purchasable: *purchasable,
			Edition:     albums.Edition{Special: *special, Name: *edition, MaxSupply: *maxSupply},
		}
	}
}

func init() {
	register(
		command{"bind", "Bind the four databases to the orchestrator (administrator)", func(fs *flag.FlagSet) action {
			return mutation(func(s *session, caller ethcommon.Address) error {
				binding := orchestrator.Binding{
					Users:  s.engine.GetUserDatabaseAddress(),
					Songs:  s.engine.GetSongDatabaseAddress(),
					Albums: s.engine.GetAlbumDatabaseAddress(),
					Splits: s.engine.GetSplitterDatabaseAddress(),
				}
				return s.engine.SetDatabaseAddresses(caller, binding)
			})
		}},
		command{"approve", "Approve the orchestrator to pull stablecoin from the keystore address", func(fs *flag.FlagSet) action {
			amount := &amountFlag{}
			fs.Var(amount, "amount", "allowance in base units")
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.token.Approve(caller, s.engine.Address(), amount.Int())
			})
		}},
		command{"register", "Register the keystore address as a user", func(fs *flag.FlagSet) action {
			name := fs.String("name", "", "display name")
			metadata := fs.String("metadata", "", "metadata URI")
			return func(s *session) (interface{}, error) {
				caller, err := s.caller()
				if err != nil {
					return nil, err
				}
				id, err := s.engine.Register(caller, *name, *metadata)
				if err != nil {
					return nil, err
				}
				return idResult{ID: id}, nil
			}
		}},
		command{"change-user", "Change a user's name and metadata", func(fs *flag.FlagSet) action {
			user := fs.Uint64("user", 0, "user id")
			name := fs.String("name", "", "display name")
			metadata := fs.String("metadata", "", "metadata URI")
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.ChangeBasicData(caller, *user, *name, *metadata)
			})
		}},
		command{"change-address", "Move a user to a new address", func(fs *flag.FlagSet) action {
			user := fs.Uint64("user", 0, "user id")
			next := &addressFlag{}
			fs.Var(next, "to", "new address")
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.ChangeAddress(caller, *user, next.value)
			})
		}},
		command{"deposit", "Deposit stablecoin into a user's balance", func(fs *flag.FlagSet) action {
			user := fs.Uint64("user", 0, "user id")
			recipient := fs.Uint64("to", 0, "credit another user instead")
			amount := &amountFlag{}
			fs.Var(amount, "amount", "amount in base units")
			return mutation(func(s *session, caller ethcommon.Address) error {
				if *recipient != 0 {
					return s.engine.DepositFundsToAnotherUser(caller, *user, *recipient, amount.Int())
				}
				return s.engine.DepositFunds(caller, *user, amount.Int())
			})
		}},
		command{"withdraw", "Withdraw from a user's balance", func(fs *flag.FlagSet) action {
			user := fs.Uint64("user", 0, "user id")
			amount := &amountFlag{}
			fs.Var(amount, "amount", "amount in base units")
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.WithdrawFunds(caller, *user, amount.Int())
			})
		}},
		command{"donate", "Donate from a user's balance to an artist", func(fs *flag.FlagSet) action {
			user := fs.Uint64("user", 0, "donor user id")
			artist := fs.Uint64("artist", 0, "artist id")
			amount := &amountFlag{}
			fs.Var(amount, "amount", "amount in base units")
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.MakeDonation(caller, *user, *artist, amount.Int())
			})
		}},
		command{"register-song", "List a song", func(fs *flag.FlagSet) action {
			artist := fs.Uint64("artist", 0, "principal artist id")
			params := songFlags(fs)
			return func(s *session) (interface{}, error) {
				caller, err := s.caller()
				if err != nil {
					return nil, err
				}
				id, err := s.engine.RegisterSong(caller, *artist, params())
				if err != nil {
					return nil, err
				}
				return idResult{ID: id}, nil
			}
		}},
		command{"change-song", "Replace a song's editable fields", func(fs *flag.FlagSet) action {
			artist := fs.Uint64("artist", 0, "principal artist id")
			song := fs.Uint64("song", 0, "song id")
			params := songFlags(fs)
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.ChangeSongFullData(caller, *artist, *song, params())
			})
		}},
		command{"song-purchasable", "Open or close sales of a song", func(fs *flag.FlagSet) action {
			artist := fs.Uint64("artist", 0, "principal artist id")
			song := fs.Uint64("song", 0, "song id")
			open := fs.Bool("open", true, "purchasable")
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.ChangeSongPurchaseability(caller, *artist, *song, *open)
			})
		}},
		command{"song-price", "Change a song's net price", func(fs *flag.FlagSet) action {
			artist := fs.Uint64("artist", 0, "principal artist id")
			song := fs.Uint64("song", 0, "song id")
			price := &amountFlag{}
			fs.Var(price, "price", "net price in base units")
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.ChangeSongPrice(caller, *artist, *song, price.Int())
			})
		}},
		command{"purchase-song", "Buy a song from a user's balance", func(fs *flag.FlagSet) action {
			user := fs.Uint64("user", 0, "buyer user id")
			song := fs.Uint64("song", 0, "song id")
			tip := &amountFlag{}
			fs.Var(tip, "tip", "extra paid to the artist")
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.PurchaseSong(caller, *user, *song, tip.Int())
			})
		}},
		command{"gift-song", "Give a song to a user", func(fs *flag.FlagSet) action {
			artist := fs.Uint64("artist", 0, "principal artist id")
			song := fs.Uint64("song", 0, "song id")
			recipient := fs.Uint64("to", 0, "recipient user id")
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.GiftSong(caller, *artist, *song, *recipient)
			})
		}},
		command{"register-album", "Bundle songs into an album", func(fs *flag.FlagSet) action {
			artist := fs.Uint64("artist", 0, "principal artist id")
			params := albumFlags(fs)
			return func(s *session) (interface{}, error) {
				caller, err := s.caller()
				if err != nil {
					return nil, err
				}
				id, err := s.engine.RegisterAlbum(caller, *artist, params())
				if err != nil {
					return nil, err
				}
				return idResult{ID: id}, nil
			}
		}},
		command{"change-album", "Replace an album's editable fields", func(fs *flag.FlagSet) action {
			artist := fs.Uint64("artist", 0, "principal artist id")
			album := fs.Uint64("album", 0, "album id")
			params := albumFlags(fs)
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.ChangeAlbumFullData(caller, *artist, *album, params())
			})
		}},
		command{"album-purchasable", "Open or close sales of an album", func(fs *flag.FlagSet) action {
			artist := fs.Uint64("artist", 0, "principal artist id")
			album := fs.Uint64("album", 0, "album id")
			open := fs.Bool("open", true, "purchasable")
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.ChangeAlbumPurchaseability(caller, *artist, *album, *open)
			})
		}},
		command{"album-price", "Change an album's net price", func(fs *flag.FlagSet) action {
			artist := fs.Uint64("artist", 0, "principal artist id")
			album := fs.Uint64("album", 0, "album id")
			price := &amountFlag{}
			fs.Var(price, "price", "net price in base units")
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.ChangeAlbumPrice(caller, *artist, *album, price.Int())
			})
		}},
		command{"purchase-album", "Buy an album from a user's balance", func(fs *flag.FlagSet) action {
			user := fs.Uint64("user", 0, "buyer user id")
			album := fs.Uint64("album", 0, "album id")
			tip := &amountFlag{}
			fs.Var(tip, "tip", "extra paid to the artist")
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.PurchaseAlbum(caller, *user, *album, tip.Int())
			})
		}},
		command{"gift-album", "Give an album to a user", func(fs *flag.FlagSet) action {
			artist := fs.Uint64("artist", 0, "principal artist id")
			album := fs.Uint64("album", 0, "album id")
			recipient := fs.Uint64("to", 0, "recipient user id")
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.GiftAlbum(caller, *artist, *album, *recipient)
			})
		}},
		command{"ban", "Ban or unban a user, song or album (administrator)", func(fs *flag.FlagSet) action {
			user := fs.Uint64("user", 0, "user id")
			song := fs.Uint64("song", 0, "song id")
			album := fs.Uint64("album", 0, "album id")
			banned := fs.Bool("banned", true, "banned status")
			return mutation(func(s *session, caller ethcommon.Address) error {
				switch {
				case *user != 0:
					return s.engine.SetUserBannedStatus(caller, *user, *banned)
				case *song != 0:
					return s.engine.SetSongBannedStatus(caller, *song, *banned)
				case *album != 0:
					return s.engine.SetAlbumBannedStatus(caller, *album, *banned)
				}
				return fmt.Errorf("one of -user, -song or -album is required")
			})
		}},
		command{"refund", "Refund a song or album purchase (administrator)", func(fs *flag.FlagSet) action {
			user := fs.Uint64("user", 0, "buyer user id")
			song := fs.Uint64("song", 0, "song id")
			album := fs.Uint64("album", 0, "album id")
			amount := &amountFlag{}
			fs.Var(amount, "amount", "amount returned to the buyer")
			return mutation(func(s *session, caller ethcommon.Address) error {
				switch {
				case *song != 0:
					return s.engine.RefundSong(caller, *song, *user, amount.Int())
				case *album != 0:
					return s.engine.RefundAlbum(caller, *album, *user, amount.Int())
				}
				return fmt.Errorf("one of -song or -album is required")
			})
		}},
		command{"split", "Set the revenue split of a song or an artist", func(fs *flag.FlagSet) action {
			artist := fs.Uint64("artist", 0, "principal artist id")
			song := fs.Uint64("song", 0, "song id; omit for the artist-wide split")
			shares := &sharesFlag{}
			fs.Var(shares, "share", "recipient as kind:id:bps, repeatable")
			return mutation(func(s *session, caller ethcommon.Address) error {
				if *song != 0 {
					return s.engine.SetSongSplit(caller, *artist, *song, shares.values)
				}
				return s.engine.SetUserSplit(caller, *artist, shares.values)
			})
		}},
		command{"set-fee", "Change the fee in basis points (administrator)", func(fs *flag.FlagSet) action {
			bps := fs.Uint64("bps", 0, "fee in basis points")
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.ChangePercentageFee(caller, *bps)
			})
		}},
		command{"withdraw-fees", "Move collected fees out of custody (administrator)", func(fs *flag.FlagSet) action {
			to := &addressFlag{}
			fs.Var(to, "to", "recipient address")
			amount := &amountFlag{}
			fs.Var(amount, "amount", "amount in base units")
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.WithdrawCollectedFees(caller, to.value, amount.Int())
			})
		}},
		command{"give-fees", "Credit collected fees to a user or artist (administrator)", func(fs *flag.FlagSet) action {
			user := fs.Uint64("user", 0, "user id")
			artist := fs.Bool("artist", false, "count the credit as royalties")
			amount := &amountFlag{}
			fs.Var(amount, "amount", "amount in base units")
			return mutation(func(s *session, caller ethcommon.Address) error {
				if *artist {
					return s.engine.GiveCollectedFeesToArtist(caller, *user, amount.Int())
				}
				return s.engine.GiveCollectedFeesToUser(caller, *user, amount.Int())
			})
		}},
		command{"propose-stablecoin", "Propose a new stablecoin (administrator)", func(fs *flag.FlagSet) action {
			next := &addressFlag{}
			fs.Var(next, "address", "token address")
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.ProposeStablecoinAddressChange(caller, next.value)
			})
		}},
		command{"cancel-stablecoin", "Cancel the pending stablecoin proposal (administrator)", func(fs *flag.FlagSet) action {
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.CancelStablecoinAddressChange(caller)
			})
		}},
		command{"execute-stablecoin", "Execute the pending stablecoin proposal (administrator)", func(fs *flag.FlagSet) action {
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.ExecuteStablecoinAddressChange(caller)
			})
		}},
		command{"migrate", "Hand the databases to a new orchestrator (administrator)", func(fs *flag.FlagSet) action {
			next := &addressFlag{}
			fs.Var(next, "to", "new orchestrator address")
			feeRecipient := &addressFlag{}
			fs.Var(feeRecipient, "fees-to", "recipient of the collected fees")
			return mutation(func(s *session, caller ethcommon.Address) error {
				return s.engine.MigrateOrchestrator(caller, next.value, feeRecipient.value)
			})
		}},
		command{"user", "Show a user", func(fs *flag.FlagSet) action {
			id := fs.Uint64("id", 0, "user id")
			return func(s *session) (interface{}, error) {
				u, err := s.engine.GetUser(*id)
				if err != nil {
					return nil, err
				}
				return rpc.UserView(u), nil
			}
		}},
		command{"song", "Show a song", func(fs *flag.FlagSet) action {
			id := fs.Uint64("id", 0, "song id")
			return func(s *session) (interface{}, error) {
				song, err := s.engine.GetSong(*id)
				if err != nil {
					return nil, err
				}
				return rpc.SongView(song), nil
			}
		}},
		command{"album", "Show an album", func(fs *flag.FlagSet) action {
			id := fs.Uint64("id", 0, "album id")
			return func(s *session) (interface{}, error) {
				album, err := s.engine.GetAlbum(*id)
				if err != nil {
					return nil, err
				}
				return rpc.AlbumView(album), nil
			}
		}},
		command{"show-split", "Show the split of a song or user", func(fs *flag.FlagSet) action {
			kind := fs.String("kind", "song", "song or user")
			id := fs.Uint64("id", 0, "entity id")
			return func(s *session) (interface{}, error) {
				entity, err := splits.ParseEntityKind(*kind)
				if err != nil {
					return nil, err
				}
				shares, err := s.engine.GetSplit(entity, *id)
				if err != nil {
					return nil, err
				}
				return rpc.SplitView(entity, *id, shares), nil
			}
		}},
		command{"quote", "Show the gross price of a net amount", func(fs *flag.FlagSet) action {
			net := &amountFlag{}
			fs.Var(net, "net", "net price in base units")
			return func(s *session) (interface{}, error) {
				total, fee, err := s.engine.GetPriceWithFee(net.Int())
				if err != nil {
					return nil, err
				}
				return rpc.QuoteResponse{Net: net.Int().Dec(), Fee: fee.Dec(), Total: total.Dec()}, nil
			}
		}},
		command{"fees", "Show the fee pool (administrator)", func(fs *flag.FlagSet) action {
			return func(s *session) (interface{}, error) {
				caller, err := s.caller()
				if err != nil {
					return nil, err
				}
				pool, err := s.engine.GetAmountCollectedInFees(caller)
				if err != nil {
					return nil, err
				}
				bps, err := s.engine.GetPercentageFee()
				if err != nil {
					return nil, err
				}
				return struct {
					FeeBps    uint64 `json:"feeBps"`
					Collected string `json:"collected"`
				}{bps, pool.Dec()}, nil
			}
		}},
		command{"info", "Show the orchestrator version, stablecoin, fee and databases", func(fs *flag.FlagSet) action {
			return func(s *session) (interface{}, error) {
				coin, err := s.engine.GetStablecoinInfo()
				if err != nil {
					return nil, err
				}
				bps, err := s.engine.GetPercentageFee()
				if err != nil {
					return nil, err
				}
				binding, err := s.engine.GetDatabaseAddresses()
				if err != nil {
					return nil, err
				}
				next, err := s.engine.GetNewOrchestratorAddress()
				if err != nil {
					return nil, err
				}
				info := infoResult{
					Version:      s.engine.Version(),
					Orchestrator: s.engine.Address().Hex(),
					FeeBps:       bps,
					Stablecoin: rpc.StablecoinResponse{
						Address:  coin.Address.Hex(),
						Symbol:   coin.Symbol,
						Decimals: coin.Decimals,
					},
					Databases: rpc.StoresResponse{
						Bound:  binding != nil,
						Users:  s.engine.GetUserDatabaseAddress().Hex(),
						Songs:  s.engine.GetSongDatabaseAddress().Hex(),
						Albums: s.engine.GetAlbumDatabaseAddress().Hex(),
						Splits: s.engine.GetSplitterDatabaseAddress().Hex(),
					},
				}
				if coin.Pending != nil {
					info.Stablecoin.Pending = &rpc.ProposalResponse{Address: coin.Pending.Address.Hex(), ExecuteAfter: coin.Pending.ExecuteAfter}
				}
				if next != (ethcommon.Address{}) {
					info.Successor = next.Hex()
				}
				return info, nil
			}
		}},
		command{"owns", "Report whether a user owns a song or album", func(fs *flag.FlagSet) action {
			user := fs.Uint64("user", 0, "user id")
			song := fs.Uint64("song", 0, "song id")
			album := fs.Uint64("album", 0, "album id")
			return func(s *session) (interface{}, error) {
				var owned bool
				var err error
				switch {
				case *song != 0:
					owned, err = s.engine.OwnsSong(*song, *user)
				case *album != 0:
					owned, err = s.engine.OwnsAlbum(*album, *user)
				default:
					return nil, fmt.Errorf("one of -song or -album is required")
				}
				if err != nil {
					return nil, err
				}
				return struct {
					Owned bool `json:"owned"`
				}{owned}, nil
			}
		}},
		command{"balance", "Show the stablecoin balance of -from or the keystore address", func(fs *flag.FlagSet) action {
			return func(s *session) (interface{}, error) {
				caller, err := s.account()
				if err != nil {
					return nil, err
				}
				balance, err := s.token.BalanceOf(caller)
				if err != nil {
					return nil, err
				}
				return struct {
					Address string `json:"address"`
					Balance string `json:"balance"`
				}{caller.Hex(), balance.Dec()}, nil
			}
		}},
	)
}
