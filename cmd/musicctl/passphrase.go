package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

const passphraseEnv = "MUSIC_KEY_PASS"

// passphraseSource resolves the keystore passphrase once per invocation,
// from the environment when set and from a terminal prompt otherwise.
type passphraseSource struct {
	envVar string
	prompt io.Writer
	stdin  *os.File

	once  sync.Once
	value string
	err   error
}

func newPassphraseSource(envVar string, prompt io.Writer) *passphraseSource {
	return &passphraseSource{envVar: strings.TrimSpace(envVar), prompt: prompt, stdin: os.Stdin}
}

// Get returns the passphrase. Blank values are rejected so no keystore is
// ever written or read without protection.
func (s *passphraseSource) Get() (string, error) {
	s.once.Do(func() {
		if s.envVar != "" {
			if value, ok := os.LookupEnv(s.envVar); ok {
				if strings.TrimSpace(value) == "" {
					s.err = fmt.Errorf("%s is set but empty", s.envVar)
					return
				}
				s.value = value
				return
			}
		}

		fd := int(s.stdin.Fd())
		if !term.IsTerminal(fd) {
			s.err = fmt.Errorf("keystore passphrase required; set %s or run interactively", s.envVar)
			return
		}
		fmt.Fprint(s.prompt, "Keystore passphrase: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(s.prompt)
		if err != nil {
			s.err = fmt.Errorf("read passphrase: %w", err)
			return
		}
		if strings.TrimSpace(string(raw)) == "" {
			s.err = errors.New("keystore passphrase cannot be empty")
			return
		}
		s.value = string(raw)
	})
	return s.value, s.err
}
