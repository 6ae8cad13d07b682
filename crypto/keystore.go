package crypto

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/google/uuid"
)

var (
	ErrEmptyPassphrase = errors.New("crypto: keystore passphrase must not be empty")
	ErrWrongPassphrase = errors.New("crypto: keystore passphrase does not decrypt the key")
)

// Keystore writes Ethereum v3 keystore files with the given scrypt cost.
// Loading reads the cost from the file itself.
type Keystore struct {
	ScryptN int
	ScryptP int
}

var (
	StandardKeystore = Keystore{ScryptN: keystore.StandardScryptN, ScryptP: keystore.StandardScryptP}
	// LightKeystore trades brute-force resistance for speed.
	LightKeystore = Keystore{ScryptN: keystore.LightScryptN, ScryptP: keystore.LightScryptP}
)

// Save encrypts key under passphrase and writes it to path with 0600
// permissions, creating the parent directory with 0700. An existing file is
// replaced atomically.
func (ks Keystore) Save(path string, key *PrivateKey, passphrase string) error {
	if key == nil || key.PrivateKey == nil {
		return errors.New("crypto: nil private key")
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("crypto: empty keystore path")
	}
	if strings.TrimSpace(passphrase) == "" {
		return ErrEmptyPassphrase
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return err
	}
	encoded, err := keystore.EncryptKey(&keystore.Key{
		Id:         id,
		Address:    key.Address(),
		PrivateKey: key.PrivateKey,
	}, passphrase, ks.ScryptN, ks.ScryptP)
	if err != nil {
		return fmt.Errorf("crypto: encrypt key: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".keystore-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFromKeystore decrypts the keystore file at path.
func LoadFromKeystore(path, passphrase string) (*PrivateKey, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("crypto: empty keystore path")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decrypted, err := keystore.DecryptKey(raw, passphrase)
	if errors.Is(err, keystore.ErrDecrypt) {
		return nil, ErrWrongPassphrase
	}
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt %s: %w", path, err)
	}
	key := &PrivateKey{PrivateKey: decrypted.PrivateKey}
	if key.Address() != decrypted.Address {
		return nil, fmt.Errorf("crypto: keystore %s address does not match its key", path)
	}
	return key, nil
}
