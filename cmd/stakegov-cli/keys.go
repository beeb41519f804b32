package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"stakegov/crypto"
)

// passphraseSource lazily resolves a keystore passphrase from an
// environment variable or by prompting the operator, caching the result.
type passphraseSource struct {
	envVar string

	once  sync.Once
	value string
	err   error
}

func newPassphraseSource(envVar string) *passphraseSource {
	return &passphraseSource{envVar: strings.TrimSpace(envVar)}
}

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
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			s.err = errors.New("keystore passphrase required; set STAKEGOV_KEYSTORE_PASSPHRASE or run interactively")
			return
		}
		fmt.Fprint(os.Stderr, "Enter keystore passphrase: ")
		pass, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			s.err = fmt.Errorf("read passphrase: %w", err)
			return
		}
		if strings.TrimSpace(string(pass)) == "" {
			s.err = errors.New("keystore passphrase cannot be empty")
			return
		}
		s.value = string(pass)
	})
	return s.value, s.err
}

// loadKey opens a v3 keystore file at path, prompting for (or reading from
// STAKEGOV_KEYSTORE_PASSPHRASE) the passphrase needed to decrypt it.
func loadKey(path string) (*crypto.PrivateKey, error) {
	passphrase, err := newPassphraseSource("STAKEGOV_KEYSTORE_PASSPHRASE").Get()
	if err != nil {
		return nil, err
	}
	return crypto.LoadFromKeystore(path, passphrase)
}
