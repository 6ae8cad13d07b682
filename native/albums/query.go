package albums

// Get returns a copy of the album record.
func (s *Store) Get(id uint64) (*Album, error) {
	album, err := s.load(id)
	if err != nil {
		return nil, err
	}
	return album.Clone(), nil
}

// Exists reports whether id refers to a registered album.
func (s *Store) Exists(id uint64) (bool, error) { return s.ids.Exists(id) }

// Count returns the number of registered albums.
func (s *Store) Count() (uint64, error) { return s.ids.Current() }

// IsOwner reports whether userID purchased or was gifted the album.
func (s *Store) IsOwner(id, userID uint64) (bool, error) {
	if _, err := s.load(id); err != nil {
		return false, err
	}
	return s.state.Has(ownerKey(id, userID))
}

// AlbumOfSong returns the album claiming songID, or 0.
func (s *Store) AlbumOfSong(songID uint64) (uint64, error) {
	return s.claimOf(songID)
}
