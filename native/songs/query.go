package songs

// Get returns a copy of the song record.
func (s *Store) Get(id uint64) (*Song, error) {
	song, err := s.load(id)
	if err != nil {
		return nil, err
	}
	return song.Clone(), nil
}

// Exists reports whether id refers to a registered song.
func (s *Store) Exists(id uint64) (bool, error) { return s.ids.Exists(id) }

// Count returns the number of registered songs.
func (s *Store) Count() (uint64, error) { return s.ids.Current() }

// IsOwner reports whether userID purchased or was gifted the song.
func (s *Store) IsOwner(id, userID uint64) (bool, error) {
	if _, err := s.load(id); err != nil {
		return false, err
	}
	return s.owns(id, userID)
}
