package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"musicchain/config"
	"musicchain/core"
	"musicchain/crypto"
	"musicchain/native/orchestrator"
	"musicchain/native/stablecoin"
	"musicchain/observability/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// session is what a subcommand acts on. from is only trusted as a caller
// when it was unlocked from a keystore.
type session struct {
	engine *orchestrator.Engine
	token  *stablecoin.Token
	from   ethcommon.Address
	signed bool
}

// caller returns the keystore address mutations and administrator queries
// act as.
func (s *session) caller() (ethcommon.Address, error) {
	if !s.signed {
		return ethcommon.Address{}, fmt.Errorf("-keystore is required for this command")
	}
	return s.from, nil
}

// account returns the address read-only commands inspect.
func (s *session) account() (ethcommon.Address, error) {
	if s.from == (ethcommon.Address{}) {
		return ethcommon.Address{}, fmt.Errorf("-from or -keystore is required for this command")
	}
	return s.from, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("musicctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	configFile := global.String("config", "./config.toml", "Path to the configuration file")
	from := global.String("from", "", "hex address read-only commands inspect")
	keyFile := global.String("keystore", "", "keystore file whose address issues the command (passphrase from "+passphraseEnv+" or a prompt)")
	global.Usage = func() { fmt.Fprintln(stderr, usage()) }
	if err := global.Parse(args); err != nil {
		return 1
	}
	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	passphrase := newPassphraseSource(passphraseEnv, stderr)
	if rest[0] == "keygen" {
		return runKeygen(rest[1:], passphrase, stdout, stderr)
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", rest[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}

	fs := flag.NewFlagSet("musicctl "+cmd.name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	act := cmd.flags(fs)
	if err := fs.Parse(rest[1:]); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return 1
	}

	var caller ethcommon.Address
	signed := false
	if trimmed := strings.TrimSpace(*from); trimmed != "" {
		if !ethcommon.IsHexAddress(trimmed) {
			fmt.Fprintf(stderr, "Error: invalid -from address %q\n", trimmed)
			return 1
		}
		caller = ethcommon.HexToAddress(trimmed)
	}
	if trimmed := strings.TrimSpace(*keyFile); trimmed != "" {
		pass, err := passphrase.Get()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		key, err := crypto.LoadFromKeystore(trimmed, pass)
		if err != nil {
			fmt.Fprintf(stderr, "Error: load keystore: %v\n", err)
			return 1
		}
		if caller != (ethcommon.Address{}) && caller != key.Address() {
			fmt.Fprintln(stderr, "Error: -from does not match the keystore address")
			return 1
		}
		caller = key.Address()
		signed = true
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	logger := logging.Setup("musicctl", cfg.Logging.Env, logging.Options{Level: cfg.Logging.Level, Output: stderr})
	node, err := core.OpenNode(cfg, core.Options{Logger: logger})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer node.Close()

	result, err := act(&session{engine: node.Orchestrator(), token: node.Stablecoin(), from: caller, signed: signed})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func usage() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("Usage:\n  musicctl [-config path] [-from address | -keystore file] <command> [flags]\n\n")
	b.WriteString("State changes and administrator queries act as the -keystore address;\n-from only selects the account read-only commands inspect.\n\nCommands:\n")
	fmt.Fprintf(&b, "  %-20s %s\n", "keygen", "Create a keystore file and print its address")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-20s %s\n", name, commands[name].summary)
	}
	return strings.TrimRight(b.String(), "\n")
}

func runKeygen(args []string, passphrase *passphraseSource, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("musicctl keygen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", "", "path of the keystore file to write")
	light := fs.Bool("lightkdf", false, "use a cheaper scrypt cost")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*out) == "" {
		fmt.Fprintln(stderr, "Error: -out is required")
		return 1
	}
	pass, err := passphrase.Get()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	ks := crypto.StandardKeystore
	if *light {
		ks = crypto.LightKeystore
	}
	if err := ks.Save(*out, key, pass); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, key.Address().Hex())
	return 0
}
