package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	campus "github.com/edusis/campuscal/internal/calendar"
	"github.com/edusis/campuscal/internal/calsync"
)

var august = campus.DateRange{
	From: campus.Date{Year: 2024, Month: time.August, Day: 1},
	To:   campus.Date{Year: 2024, Month: time.August, Day: 31},
}

func eventsServer(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"": `{"items":[
			{"id":"g1","summary":"Networks Quiz","description":"Quiz on chapter 3","start":{"dateTime":"2024-08-15T09:00:00+03:00"}},
			{"id":"gone","status":"cancelled","summary":"Old","start":{"date":"2024-08-16"}}
		],"nextPageToken":"p2"}`,
		"p2": `{"items":[
			{"id":"g2","summary":"Reading Day","description":"No classes","start":{"date":"2024-08-20"}}
		]}`,
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/calendars/primary/events") {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		assert.Equal(t, "true", q.Get("singleEvents"))
		assert.Equal(t, "2024-08-01T00:00:00Z", q.Get("timeMin"))
		assert.Equal(t, "2024-09-01T00:00:00Z", q.Get("timeMax"))

		body, ok := pages[q.Get("pageToken")]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func newTestCalendar(t *testing.T, srv *httptest.Server) *Calendar {
	t.Helper()
	cal := New(Config{}, WithLocation(time.UTC), WithClientOptions(
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	))
	require.NoError(t, cal.Authenticate(context.Background()))
	return cal
}

func TestListEventsPages(t *testing.T) {
	srv := eventsServer(t)
	defer srv.Close()
	cal := newTestCalendar(t, srv)

	first, err := cal.ListEvents(context.Background(), august, "")
	require.NoError(t, err)
	assert.Equal(t, "p2", first.NextPageToken)
	require.Len(t, first.Records, 1, "cancelled events are dropped")

	rec := first.Records[0]
	assert.Equal(t, "g1", rec.ID)
	require.NotNil(t, rec.StartTime)
	assert.True(t, rec.StartTime.Equal(time.Date(2024, 8, 15, 6, 0, 0, 0, time.UTC)))

	second, err := cal.ListEvents(context.Background(), august, first.NextPageToken)
	require.NoError(t, err)
	assert.Empty(t, second.NextPageToken)
	require.Len(t, second.Records, 1)
	assert.Equal(t, calsync.Record{ID: "g2", Summary: "Reading Day", Description: "No classes", StartDate: "2024-08-20"}, second.Records[0])
}

func TestSyncThroughAdapter(t *testing.T) {
	srv := eventsServer(t)
	defer srv.Close()
	cal := New(Config{}, WithClientOptions(
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	))

	store, err := campus.NewStore()
	require.NoError(t, err)

	adapter := calsync.NewAdapter(cal, calsync.WithLocation(time.UTC))
	n, err := adapter.SyncNow(context.Background(), august, store)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	quiz, ok := store.Get("g1")
	require.True(t, ok)
	assert.Equal(t, campus.TagQuiz, quiz.Tag)
	assert.Equal(t, "6:00 AM", quiz.Time)
}

func TestListEventsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	cal := newTestCalendar(t, srv)

	_, err := cal.ListEvents(context.Background(), august, "")
	assert.Error(t, err)
}

func TestListEventsRequiresAuthenticate(t *testing.T) {
	_, err := New(Config{}).ListEvents(context.Background(), august, "")
	assert.Error(t, err)
}

func writeCredentials(t *testing.T, tokenURL string) string {
	t.Helper()
	creds := map[string]any{
		"installed": map[string]any{
			"client_id":     "campuscal-test",
			"client_secret": "shh",
			"auth_uri":      "https://accounts.example.com/o/oauth2/auth",
			"token_uri":     tokenURL,
			"redirect_uris": []string{"urn:ietf:wg:oauth:2.0:oob"},
		},
	}
	data, err := json.Marshal(creds)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestAuthenticateWithoutToken(t *testing.T) {
	cfg := Config{
		CredentialsFile: writeCredentials(t, "https://oauth2.example.com/token"),
		TokenFile:       filepath.Join(t.TempDir(), "token.json"),
	}

	err := New(cfg).Authenticate(context.Background())
	assert.True(t, errors.Is(err, ErrNoToken))
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","refresh_token":"rt-1","expires_in":3600}`))
	}))
	defer srv.Close()

	conf, err := OAuthConfig(writeCredentials(t, srv.URL+"/token"))
	require.NoError(t, err)

	tokenFile := filepath.Join(t.TempDir(), "nested", "token.json")
	var shown string
	tok, err := Login(context.Background(), conf, tokenFile, func(authURL string) (string, error) {
		shown = authURL
		return "  the-code\n", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)

	u, err := url.Parse(shown)
	require.NoError(t, err)
	assert.Equal(t, "campuscal-test", u.Query().Get("client_id"))
	assert.Equal(t, "offline", u.Query().Get("access_type"))
	assert.NotEmpty(t, u.Query().Get("state"))

	saved, err := loadToken(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "rt-1", saved.RefreshToken)
}

func TestLoginEmptyCode(t *testing.T) {
	conf := &oauth2.Config{ClientID: "x", Endpoint: oauth2.Endpoint{AuthURL: "https://a.example.com", TokenURL: "https://t.example.com"}}
	for _, code := range []string{"", "  \n"} {
		_, err := Login(context.Background(), conf, filepath.Join(t.TempDir(), "token.json"), func(string) (string, error) {
			return code, nil
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty authorization code")
	}
}

type sequenceSource struct {
	tokens []string
	i      int
}

func (s *sequenceSource) Token() (*oauth2.Token, error) {
	tok := &oauth2.Token{AccessToken: s.tokens[s.i]}
	if s.i < len(s.tokens)-1 {
		s.i++
	}
	return tok, nil
}

func TestSavingTokenSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	initial := &oauth2.Token{AccessToken: "a"}
	src := newSavingTokenSource(&sequenceSource{tokens: []string{"a", "b"}}, path, initial, zerolog.Nop())

	_, err := src.Token()
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "unchanged token is not written")

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "b", tok.AccessToken)

	saved, err := loadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "b", saved.AccessToken)
}
