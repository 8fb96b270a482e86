package google

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// OAuthConfig reads an OAuth client from the credentials JSON downloaded
// from the Google Cloud console.
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, errors.Wrap(err, "read google credentials")
	}
	conf, err := google.ConfigFromJSON(data, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, errors.Wrap(err, "parse google credentials")
	}
	return conf, nil
}

// CodeReader shows the consent URL to the user and returns the
// authorization code they paste back.
type CodeReader func(authURL string) (string, error)

// Login runs the out-of-band consent flow and stores the token.
func Login(ctx context.Context, conf *oauth2.Config, tokenFile string, read CodeReader) (*oauth2.Token, error) {
	// the code is pasted back by hand, so no redirect carries state to
	// compare; it only makes each consent URL unique
	state, err := randomState()
	if err != nil {
		return nil, err
	}
	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	code, err := read(authURL)
	if err != nil {
		return nil, errors.Wrap(err, "read authorization code")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("empty authorization code")
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "exchange authorization code")
	}
	if err := saveToken(tokenFile, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generate state")
	}
	return hex.EncodeToString(b), nil
}
