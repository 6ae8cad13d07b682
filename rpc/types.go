package rpc

import (
	"musicchain/native/albums"
	"musicchain/native/orchestrator"
	"musicchain/native/songs"
	"musicchain/native/splits"
	"musicchain/native/users"
)

// Amounts are rendered as decimal strings in base units.

type QuoteResponse struct {
	Net   string `json:"net"`
	Fee   string `json:"fee"`
	Total string `json:"total"`
}

type FeeResponse struct {
	FeeBps uint64 `json:"feeBps"`
}

type ProposalResponse struct {
	Address      string `json:"address"`
	ExecuteAfter uint64 `json:"executeAfter"`
}

type StablecoinResponse struct {
	Address  string            `json:"address"`
	Symbol   string            `json:"symbol"`
	Decimals uint8             `json:"decimals"`
	Pending  *ProposalResponse `json:"pending,omitempty"`
}

type StoresResponse struct {
	Bound  bool   `json:"bound"`
	Users  string `json:"users"`
	Songs  string `json:"songs"`
	Albums string `json:"albums"`
	Splits string `json:"splits"`
}

type VersionResponse struct {
	Version string `json:"version"`
}

type SuccessorResponse struct {
	Migrated        bool   `json:"migrated"`
	NewOrchestrator string `json:"newOrchestrator,omitempty"`
}

type UserResponse struct {
	ID                   uint64   `json:"id"`
	Name                 string   `json:"name"`
	MetadataURI          string   `json:"metadataUri"`
	Address              string   `json:"address"`
	Balance              string   `json:"balance"`
	AccumulatedRoyalties string   `json:"accumulatedRoyalties"`
	Purchased            []uint64 `json:"purchased"`
	Banned               bool     `json:"banned"`
}

type SongResponse struct {
	ID                uint64   `json:"id"`
	Title             string   `json:"title"`
	PrincipalArtistID uint64   `json:"principalArtistId"`
	FeaturedArtistIDs []uint64 `json:"featuredArtistIds"`
	MediaURI          string   `json:"mediaUri"`
	MetadataURI       string   `json:"metadataUri"`
	Purchasable       bool     `json:"purchasable"`
	NetPrice          string   `json:"netPrice"`
	PurchaseCount     uint64   `json:"purchaseCount"`
	AlbumID           uint64   `json:"albumId"`
	Banned            bool     `json:"banned"`
}

type AlbumResponse struct {
	ID                 uint64   `json:"id"`
	Title              string   `json:"title"`
	PrincipalArtistID  uint64   `json:"principalArtistId"`
	MetadataURI        string   `json:"metadataUri"`
	SongIDs            []uint64 `json:"songIds"`
	NetPrice           string   `json:"netPrice"`
	Purchasable        bool     `json:"purchasable"`
	SpecialEdition     bool     `json:"specialEdition"`
	SpecialEditionName string   `json:"specialEditionName,omitempty"`
	MaxSupply          uint64   `json:"maxSupply"`
	PurchaseCount      uint64   `json:"purchaseCount"`
	Banned             bool     `json:"banned"`
}

type ShareResponse struct {
	RecipientKind string `json:"recipientKind"`
	RecipientID   uint64 `json:"recipientId"`
	Bps           uint64 `json:"bps"`
}

type SplitResponse struct {
	EntityKind string          `json:"entityKind"`
	EntityID   uint64          `json:"entityId"`
	Shares     []ShareResponse `json:"shares"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// UserView renders a user record.
func UserView(u *users.User) UserResponse {
	return UserResponse{
		ID:                   u.ID,
		Name:                 u.Name,
		MetadataURI:          u.MetadataURI,
		Address:              u.Address.Hex(),
		Balance:              amount(u.Balance),
		AccumulatedRoyalties: amount(u.AccumulatedRoyalties),
		Purchased:            nonNil(u.Purchased),
		Banned:               u.Banned,
	}
}

// SongView renders a song record.
func SongView(s *songs.Song) SongResponse {
	return SongResponse{
		ID:                s.ID,
		Title:             s.Title,
		PrincipalArtistID: s.PrincipalArtistID,
		FeaturedArtistIDs: nonNil(s.FeaturedArtistIDs),
		MediaURI:          s.MediaURI,
		MetadataURI:       s.MetadataURI,
		Purchasable:       s.Purchasable,
		NetPrice:          amount(s.NetPrice),
		PurchaseCount:     s.PurchaseCount,
		AlbumID:           s.AlbumID,
		Banned:            s.Banned,
	}
}

// AlbumView renders an album record.
func AlbumView(a *albums.Album) AlbumResponse {
	return AlbumResponse{
		ID:                 a.ID,
		Title:              a.Title,
		PrincipalArtistID:  a.PrincipalArtistID,
		MetadataURI:        a.MetadataURI,
		SongIDs:            nonNil(a.SongIDs),
		NetPrice:           amount(a.NetPrice),
		Purchasable:        a.Purchasable,
		SpecialEdition:     a.SpecialEdition,
		SpecialEditionName: a.SpecialEditionName,
		MaxSupply:          a.MaxSupply,
		PurchaseCount:      a.PurchaseCount,
		Banned:             a.Banned,
	}
}

// SplitView renders a split configuration.
func SplitView(kind splits.EntityKind, id uint64, shares []splits.Share) SplitResponse {
	out := SplitResponse{EntityKind: kind.String(), EntityID: id, Shares: make([]ShareResponse, 0, len(shares))}
	for _, share := range shares {
		out.Shares = append(out.Shares, ShareResponse{
			RecipientKind: share.RecipientKind.String(),
			RecipientID:   share.RecipientID,
			Bps:           share.Bps,
		})
	}
	return out
}

func proposalView(p *orchestrator.Proposal) *ProposalResponse {
	if p == nil {
		return nil
	}
	return &ProposalResponse{Address: p.Address.Hex(), ExecuteAfter: p.ExecuteAfter}
}

func nonNil(ids []uint64) []uint64 {
	if ids == nil {
		return []uint64{}
	}
	return ids
}
