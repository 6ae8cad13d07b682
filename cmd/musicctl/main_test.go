package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"musicchain/crypto"
	"musicchain/rpc"
)

const (
	listener = "listener"
	artist   = "artist"
	admin    = "admin"
)

type cli struct {
	t      *testing.T
	config string
	keys   map[string]string
	addrs  map[string]string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv(passphraseEnv, "secret")
	dir := t.TempDir()
	c := &cli{t: t, keys: map[string]string{}, addrs: map[string]string{}}
	for seed, name := range []string{listener, artist, admin} {
		key, err := crypto.PrivateKeyFromBytes(bytes.Repeat([]byte{byte(seed + 1)}, 32))
		require.NoError(t, err)
		path := filepath.Join(dir, "keys", name+".json")
		require.NoError(t, crypto.LightKeystore.Save(path, key, "secret"))
		c.keys[name] = path
		c.addrs[name] = key.Address().Hex()
	}

	genesisPath := filepath.Join(dir, "genesis.yaml")
	require.NoError(t, os.WriteFile(genesisPath, []byte(`allocations:
  - address: "`+c.addrs[listener]+`"
    balance: "10000"
    allowance: unlimited
`), 0o644))
	c.config = filepath.Join(dir, "config.toml")
	contents := fmt.Sprintf("DataDir = %q\nGenesisFile = %q\nAdministrator = %q\n\n[logging]\nLevel = \"error\"\n",
		filepath.Join(dir, "data"), genesisPath, c.addrs[admin])
	require.NoError(t, os.WriteFile(c.config, []byte(contents), 0o644))
	return c
}

// invoke runs args as the named keystore, or anonymously when as is empty.
func (c *cli) invoke(as string, args ...string) (int, string, string) {
	c.t.Helper()
	full := []string{"-config", c.config}
	if as != "" {
		full = append(full, "-keystore", c.keys[as])
	}
	full = append(full, args...)
	var stdout, stderr bytes.Buffer
	code := run(full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (c *cli) mustInvoke(as string, args ...string) string {
	c.t.Helper()
	code, stdout, stderr := c.invoke(as, args...)
	require.Equal(c.t, 0, code, stderr)
	return stdout
}

func TestPurchaseFlow(t *testing.T) {
	c := newCLI(t)

	var id idResult
	require.NoError(t, json.Unmarshal([]byte(c.mustInvoke(listener, "register", "-name", "listener")), &id))
	require.EqualValues(t, 1, id.ID)
	require.NoError(t, json.Unmarshal([]byte(c.mustInvoke(artist, "register", "-name", "artist")), &id))
	require.EqualValues(t, 2, id.ID)

	c.mustInvoke(listener, "deposit", "-user", "1", "-amount", "5000")
	c.mustInvoke(artist, "register-song", "-artist", "2", "-title", "Track", "-purchasable", "-price", "1000")
	c.mustInvoke(artist, "register-album", "-artist", "2", "-title", "Single", "-songs", "1")
	c.mustInvoke(listener, "purchase-song", "-user", "1", "-song", "1", "-tip", "100")

	var user rpc.UserResponse
	require.NoError(t, json.Unmarshal([]byte(c.mustInvoke("", "user", "-id", "1")), &user))
	require.Equal(t, "3875", user.Balance)
	require.Equal(t, []uint64{1}, user.Purchased)

	require.NoError(t, json.Unmarshal([]byte(c.mustInvoke("", "user", "-id", "2")), &user))
	require.Equal(t, "1100", user.Balance)

	var quote rpc.QuoteResponse
	require.NoError(t, json.Unmarshal([]byte(c.mustInvoke("", "quote", "-net", "1000")), &quote))
	require.Equal(t, "1025", quote.Total)

	out := c.mustInvoke(admin, "fees")
	require.Contains(t, out, `"collected": "25"`)

	require.Contains(t, c.mustInvoke("", "owns", "-user", "1", "-song", "1"), `"owned": true`)
	require.Contains(t, c.mustInvoke("", "owns", "-user", "2", "-album", "1"), `"owned": false`)

	out = c.mustInvoke("", "-from", c.addrs[listener], "balance")
	require.Contains(t, out, `"balance": "5000"`)

	var info infoResult
	require.NoError(t, json.Unmarshal([]byte(c.mustInvoke("", "info")), &info))
	require.True(t, info.Databases.Bound)
	require.EqualValues(t, 250, info.FeeBps)
	require.Empty(t, info.Successor)
}

func TestCommandErrors(t *testing.T) {
	c := newCLI(t)

	code, _, stderr := c.invoke("", "register", "-name", "anon")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "-keystore is required")

	code, _, stderr = c.invoke(listener, "set-fee", "-bps", "100")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Error:")

	code, _, stderr = c.invoke("", "bogus")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Unknown command: bogus")

	code, _, _ = c.invoke(listener, "deposit", "-amount", "lots")
	require.Equal(t, 1, code)

	code, _, _ = c.invoke(listener, "user", "extra")
	require.Equal(t, 1, code)
}

func TestFromCannotActAsAdministrator(t *testing.T) {
	c := newCLI(t)
	for _, args := range [][]string{
		{"set-fee", "-bps", "100"},
		{"withdraw-fees", "-to", c.addrs[listener], "-amount", "1"},
		{"fees"},
		{"register", "-name", "mallory"},
	} {
		code, _, stderr := c.invoke("", append([]string{"-from", c.addrs[admin]}, args...)...)
		require.Equal(t, 1, code, args[0])
		require.Contains(t, stderr, "-keystore is required", args[0])
	}

	code, _, stderr := c.invoke(listener, "-from", c.addrs[admin], "fees")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "does not match the keystore address")
}

func TestUsageListsEveryCommand(t *testing.T) {
	text := usage()
	for name := range commands {
		require.True(t, strings.Contains(text, "  "+name+" "), name)
	}
}

func TestKeygenRequiresOut(t *testing.T) {
	t.Setenv(passphraseEnv, "secret")
	var stdout, stderr bytes.Buffer
	require.Equal(t, 1, run([]string{"keygen"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "-out is required")
}

func TestKeygenWritesLoadableKeystore(t *testing.T) {
	t.Setenv(passphraseEnv, "secret")
	path := filepath.Join(t.TempDir(), "operator.json")
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"keygen", "-out", path, "-lightkdf"}, &stdout, &stderr), stderr.String())

	key, err := crypto.LoadFromKeystore(path, "secret")
	require.NoError(t, err)
	require.Equal(t, key.Address().Hex(), strings.TrimSpace(stdout.String()))
}

func TestKeygenRejectsBlankPassphrase(t *testing.T) {
	t.Setenv(passphraseEnv, "   ")
	path := filepath.Join(t.TempDir(), "operator.json")
	var stdout, stderr bytes.Buffer
	require.Equal(t, 1, run([]string{"keygen", "-out", path, "-lightkdf"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), passphraseEnv+" is set but empty")
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestMissingKeystoreFails(t *testing.T) {
	c := newCLI(t)
	code, _, stderr := c.invoke("", "-keystore", filepath.Join(t.TempDir(), "missing.json"), "user", "-id", "1")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "load keystore")
}

func TestWrongPassphraseFails(t *testing.T) {
	c := newCLI(t)
	t.Setenv(passphraseEnv, "not-the-secret")
	code, _, stderr := c.invoke(listener, "register", "-name", "listener")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "load keystore")
}
