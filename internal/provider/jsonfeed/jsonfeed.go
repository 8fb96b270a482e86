// Package jsonfeed reads provider records from newline-delimited JSON files,
// one record per line. It lets scripts feed events into the calendar.
package jsonfeed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/edusis/campuscal/internal/calendar"
	"github.com/edusis/campuscal/internal/calsync"
)

const maxLine = 1 << 20

// Feed is a calsync.Provider over a single file.
type Feed struct {
	Path string
	loc  *time.Location
}

func New(path string, loc *time.Location) *Feed {
	if loc == nil {
		loc = time.Local
	}
	return &Feed{Path: path, loc: loc}
}

func (f *Feed) Name() string {
	return "json:" + filepath.Base(f.Path)
}

// Authenticate checks that the feed file is readable.
func (f *Feed) Authenticate(context.Context) error {
	file, err := os.Open(f.Path)
	if err != nil {
		return errors.Wrap(err, "open feed")
	}
	return file.Close()
}

// ListEvents reads the whole file as one page. Records dated outside rng
// are dropped; a line that is not a record fails the listing.
func (f *Feed) ListEvents(ctx context.Context, rng calendar.DateRange, _ string) (calsync.Page, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return calsync.Page{}, errors.Wrap(err, "open feed")
	}
	defer file.Close()

	var page calsync.Page
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		if err := ctx.Err(); err != nil {
			return calsync.Page{}, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		var rec calsync.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return calsync.Page{}, calsync.MalformedError("%s line %d: %v", f.Path, lineNum, err)
		}

		date, ok := f.recordDate(rec)
		if ok && !rng.Contains(date) {
			continue
		}
		page.Records = append(page.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return calsync.Page{}, errors.Wrapf(err, "read %s", f.Path)
	}
	return page, nil
}

// recordDate is the date used for range filtering. Records without a usable
// start are passed through so the adapter reports them.
func (f *Feed) recordDate(rec calsync.Record) (calendar.Date, bool) {
	if rec.StartTime != nil {
		return calendar.DateOf(rec.StartTime.In(f.loc)), true
	}
	d, err := calendar.ParseDate(rec.StartDate)
	if err != nil {
		return calendar.Date{}, false
	}
	return d, true
}

func (f *Feed) WatchPaths() []string {
	return []string{f.Path}
}
