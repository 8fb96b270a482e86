package google

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

var ErrNoToken = errors.New("not logged in to Google Calendar; run `campuscal login`")

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, errors.Wrap(err, "read token")
	}
	tok := new(oauth2.Token)
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, errors.Wrapf(err, "decode token %s", path)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "create token dir")
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "write token")
	}
	return errors.Wrap(os.Rename(tmp, path), "replace token")
}

// savingTokenSource writes the token back to disk whenever the underlying
// source hands out a new one, so refreshes survive restarts.
type savingTokenSource struct {
	src  oauth2.TokenSource
	path string
	log  zerolog.Logger

	mu   sync.Mutex
	last string
}

func newSavingTokenSource(src oauth2.TokenSource, path string, initial *oauth2.Token, log zerolog.Logger) *savingTokenSource {
	s := &savingTokenSource{src: src, path: path, log: log}
	if initial != nil {
		s.last = initial.AccessToken
	}
	return s
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := saveToken(s.path, tok); err != nil {
			s.log.Warn().Err(err).Msg("could not save refreshed token")
		} else {
			s.log.Debug().Msg("saved refreshed token")
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}
