// Package boltdb keeps local calendar events in a bbolt file.
package boltdb

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/edusis/campuscal/internal/calendar"
)

const (
	rootBucket  = "campuscal"
	eventBucket = "events"
	indexBucket = "ids"
)

var keySeparator = []byte{'/'}

// Config locates the bbolt file and sets its logger and lock timeout.
type Config struct {
	Path   string
	Logger zerolog.Logger
	// Timeout bounds the wait for the file lock held by another process.
	Timeout time.Duration
}

// Repo persists events under "<date>/<id>" keys so a cursor walk returns
// them in date order. The database is opened per operation, so a TUI and a
// CLI command can share one file.
type Repo struct {
	path    string
	timeout time.Duration
	log     zerolog.Logger
}

// New returns a repository for c.Path, creating the file and its buckets.
func New(c Config) (*Repo, error) {
	r := &Repo{
		path:    c.Path,
		timeout: c.Timeout,
		log:     c.Logger.With().Str("component", "boltdb").Logger(),
	}
	if r.timeout <= 0 {
		r.timeout = time.Second
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return nil, errors.Wrapf(err, "create %s", filepath.Dir(r.path))
	}
	err := r.update(func(*bolt.Bucket, *bolt.Bucket) error { return nil })
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repo) open() (*bolt.DB, error) {
	db, err := bolt.Open(r.path, 0o600, &bolt.Options{Timeout: r.timeout})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open db %s", r.path)
	}
	return db, nil
}

func (r *Repo) update(fn func(events, index *bolt.Bucket) error) error {
	db, err := r.open()
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(rootBucket))
		if err != nil {
			return errors.Wrapf(err, "unable to create root bucket %s", rootBucket)
		}
		events, err := root.CreateBucketIfNotExists([]byte(eventBucket))
		if err != nil {
			return errors.Wrapf(err, "unable to create bucket %s", eventBucket)
		}
		index, err := root.CreateBucketIfNotExists([]byte(indexBucket))
		if err != nil {
			return errors.Wrapf(err, "unable to create bucket %s", indexBucket)
		}
		return fn(events, index)
	})
}

func (r *Repo) view(fn func(events, index *bolt.Bucket) error) error {
	db, err := r.open()
	if err != nil {
		return err
	}
	defer db.Close()

	return db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(rootBucket))
		if root == nil {
			return errors.Errorf("invalid bucket %s", rootBucket)
		}
		return fn(root.Bucket([]byte(eventBucket)), root.Bucket([]byte(indexBucket)))
	})
}

func itemKey(ev calendar.Event) []byte {
	return bytes.Join([][]byte{[]byte(ev.Date.String()), []byte(ev.ID)}, keySeparator)
}

// LoadEvents returns every stored event ordered by date.
func (r *Repo) LoadEvents() ([]calendar.Event, error) {
	events := make([]calendar.Event, 0)
	err := r.view(func(b, _ *bolt.Bucket) error {
		return b.ForEach(func(k, raw []byte) error {
			ev, err := loadItem(raw)
			if err != nil {
				r.log.Warn().Err(err).Bytes("key", k).Msg("skipping unreadable event")
				return nil
			}
			events = append(events, ev)
			return nil
		})
	})
	return events, err
}

// LoadRange returns the stored events dated within [from, to].
func (r *Repo) LoadRange(from, to calendar.Date) ([]calendar.Event, error) {
	events := make([]calendar.Event, 0)
	min := []byte(from.String())
	max := append([]byte(to.String()), keySeparator[0]+1)

	err := r.view(func(b, _ *bolt.Bucket) error {
		c := b.Cursor()
		for k, raw := c.Seek(min); k != nil && bytes.Compare(k, max) < 0; k, raw = c.Next() {
			ev, err := loadItem(raw)
			if err != nil {
				r.log.Warn().Err(err).Bytes("key", k).Msg("skipping unreadable event")
				continue
			}
			events = append(events, ev)
		}
		return nil
	})
	return events, err
}

func loadItem(raw []byte) (calendar.Event, error) {
	ev := calendar.Event{}
	if len(raw) == 0 {
		return ev, errors.New("empty raw item")
	}
	err := json.Unmarshal(raw, &ev)
	return ev, err
}

// SaveEvent stores ev, replacing an earlier version with the same id.
func (r *Repo) SaveEvent(ev calendar.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrapf(err, "encode event %s", ev.ID)
	}
	return r.update(func(events, index *bolt.Bucket) error {
		if old := index.Get([]byte(ev.ID)); old != nil {
			if err := events.Delete(old); err != nil {
				return err
			}
		}
		key := itemKey(ev)
		if err := events.Put(key, raw); err != nil {
			return errors.Wrapf(err, "could not save event %s", ev.ID)
		}
		r.log.Debug().Str("id", ev.ID).Str("date", ev.Date.String()).Msg("saved event")
		return index.Put([]byte(ev.ID), key)
	})
}

// DeleteEvent removes id. Unknown ids are not an error.
func (r *Repo) DeleteEvent(id string) error {
	return r.update(func(events, index *bolt.Bucket) error {
		key := index.Get([]byte(id))
		if key == nil {
			return nil
		}
		if err := events.Delete(key); err != nil {
			return errors.Wrapf(err, "could not delete event %s", id)
		}
		r.log.Debug().Str("id", id).Msg("deleted event")
		return index.Delete([]byte(id))
	})
}
