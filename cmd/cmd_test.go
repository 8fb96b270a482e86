package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/edusis/campuscal/internal/calendar"
)

// writeConfig creates a config whose store and log live in a temp dir.
// extra is appended verbatim.
func writeConfig(t *testing.T, extra string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	content := "timezone: UTC\n" +
		"store_path: " + filepath.Join(dir, "events.db") + "\n" +
		"log:\n  level: warn\n  file: " + filepath.Join(dir, "campuscal.log") + "\n" +
		extra
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path, dir
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func listMonthYAML(t *testing.T, cfgPath, month string, extra ...string) monthListing {
	t.Helper()
	args := append([]string{"--config", cfgPath, "list", "--month", month, "--output", "yaml"}, extra...)
	out, err := execute(t, args...)
	require.NoError(t, err, out)

	var got monthListing
	require.NoError(t, yaml.Unmarshal([]byte(out), &got), out)
	return got
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "campuscal dev\n", out)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestAddAndList(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")

	out, err := execute(t, "--config", cfgPath, "add", "--date", "2024-08-18", "--title", "DB project", "--tag", "deadline")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Added DB project on 2024-08-18 at All Day [Deadline]")

	out, err = execute(t, "--config", cfgPath, "add", "2024-08-15", "2pm", "Networks", "quiz", "--tag", "Quiz")
	require.NoError(t, err, out)

	out, err = execute(t, "--config", cfgPath, "add", "--date", "2024-09-02", "--title", "Next term")
	require.NoError(t, err, out)

	got := listMonthYAML(t, cfgPath, "2024-08")
	assert.Equal(t, "2024-08", got.Month)
	require.Len(t, got.Events, 2)

	assert.Equal(t, "Networks quiz", got.Events[0].Title)
	assert.Equal(t, calendar.Date{Year: 2024, Month: time.August, Day: 15}, got.Events[0].Date)
	assert.Equal(t, "2:00 PM", got.Events[0].Time)
	assert.Equal(t, calendar.TagQuiz, got.Events[0].Tag)
	assert.Equal(t, calendar.SourceLocal, got.Events[0].Source)

	assert.Equal(t, "DB project", got.Events[1].Title)
	assert.Equal(t, calendar.TagDeadline, got.Events[1].Tag)

	out, err = execute(t, "--config", cfgPath, "list", "--month", "2024-09")
	require.NoError(t, err)
	assert.Contains(t, out, "Events for September 2024:")
	assert.Contains(t, out, "Sep 2, 2024")
	assert.Contains(t, out, "[Assignment] Next term")

	out, err = execute(t, "--config", cfgPath, "list", "--month", "2024-10")
	require.NoError(t, err)
	assert.Contains(t, out, "No events found.")
}

func TestListMonthBoundaries(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")

	for _, date := range []string{"2024-09-01", "2024-08-31", "2024-07-31", "2024-08-01"} {
		_, err := execute(t, "--config", cfgPath, "add", "--date", date, "--title", "Due "+date)
		require.NoError(t, err)
	}

	got := listMonthYAML(t, cfgPath, "2024-08")
	require.Len(t, got.Events, 2)
	assert.Equal(t, "Due 2024-08-01", got.Events[0].Title)
	assert.Equal(t, "Due 2024-08-31", got.Events[1].Title)
}

func TestAddErrors(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown tag", []string{"add", "--date", "2024-08-18", "--title", "Party", "--tag", "party"}, "tag"},
		{"no title", []string{"add", "--date", "2024-08-18"}, "title"},
		{"bad date", []string{"add", "--date", "someday", "--title", "Quiz"}, "--date"},
		{"bad time", []string{"add", "--title", "Quiz", "--time", "soonish"}, "--time"},
		{"impossible date", []string{"add", "--date", "2023-02-30", "--title", "Quiz"}, "--date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"--config", cfgPath}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.Empty(t, listMonthYAML(t, cfgPath, "2024-08").Events)
}

func TestDelete(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")

	_, err := execute(t, "--config", cfgPath, "add", "--date", "2024-08-27", "--title", "SE Midterm", "--tag", "exam")
	require.NoError(t, err)
	events := listMonthYAML(t, cfgPath, "2024-08").Events
	require.Len(t, events, 1)

	_, err = execute(t, "--config", cfgPath, "delete", "missing-id", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no event with id")

	out, err := execute(t, "--config", cfgPath, "delete", events[0].ID, "--yes")
	require.NoError(t, err)
	assert.Equal(t, "Deleted "+events[0].ID+"\n", out)
	assert.Empty(t, listMonthYAML(t, cfgPath, "2024-08").Events)
}

func TestSyncJSONFeed(t *testing.T) {
	dir := t.TempDir()
	feed := filepath.Join(dir, "labs.jsonl")
	require.NoError(t, os.WriteFile(feed, []byte(
		`{"id":"lab-1","summary":"Networks lab","description":"short quiz","start_date":"2024-08-20"}
{"id":"lab-2","summary":"Office hours","start_time":"2024-08-21T15:30:00Z"}
{"id":"lab-3","summary":"Far away","start_date":"2025-06-01"}
`), 0o600))
	cfgPath, _ := writeConfig(t, "json_feeds:\n  - "+feed+"\n")

	_, err := execute(t, "--config", cfgPath, "add", "--date", "2024-08-20", "--title", "Read chapter 4")
	require.NoError(t, err)

	out, err := execute(t, "--config", cfgPath, "sync", "--month", "2024-08")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Synced 2 events from json:labs.jsonl (2024-07-01 to 2024-11-30)")

	got := listMonthYAML(t, cfgPath, "2024-08", "--sync")
	require.Len(t, got.Events, 3)
	assert.Equal(t, "Read chapter 4", got.Events[0].Title)
	assert.Equal(t, calendar.SourceLocal, got.Events[0].Source)

	assert.Equal(t, "lab-1", got.Events[1].ID)
	assert.Equal(t, calendar.TagQuiz, got.Events[1].Tag)
	assert.Equal(t, calendar.AllDay, got.Events[1].Time)
	assert.Equal(t, calendar.SourceExternal, got.Events[1].Source)

	assert.Equal(t, "lab-2", got.Events[2].ID)
	assert.Equal(t, "3:30 PM", got.Events[2].Time)
	assert.Equal(t, calendar.TagMeeting, got.Events[2].Tag)

	// synced events are not written to the local store
	assert.Len(t, listMonthYAML(t, cfgPath, "2024-08").Events, 1)

	out, err = execute(t, "--config", cfgPath, "list", "--month", "2024-08", "--sync")
	require.NoError(t, err)
	assert.Contains(t, out, "Networks lab (synced)")
}

func TestSyncErrors(t *testing.T) {
	t.Run("no providers", func(t *testing.T) {
		cfgPath, _ := writeConfig(t, "")
		_, err := execute(t, "--config", cfgPath, "sync")
		require.ErrorIs(t, err, calendar.ErrNoSyncer)
	})

	t.Run("malformed feed", func(t *testing.T) {
		dir := t.TempDir()
		feed := filepath.Join(dir, "broken.jsonl")
		require.NoError(t, os.WriteFile(feed, []byte("not json\n"), 0o600))
		cfgPath, _ := writeConfig(t, "json_feeds:\n  - "+feed+"\n")

		_, err := execute(t, "--config", cfgPath, "sync", "--month", "2024-08")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sync failed")
	})
}

func TestListFlagErrors(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")

	_, err := execute(t, "--config", cfgPath, "list", "--month", "August")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want YYYY-MM")

	_, err = execute(t, "--config", cfgPath, "list", "--output", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestLoginRequiresCredentials(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	_, err := execute(t, "--config", cfgPath, "login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials_file")
}

func TestHashPasswordsRejectsUnknownDriver(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	_, err := execute(t, "--config", cfgPath, "hash-passwords", "--driver", "sqlite", "--dsn", "file.db")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "sqlite"), err.Error())
}
