package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/senseivictor/baza-de-date/internal/database"
	"github.com/senseivictor/baza-de-date/internal/queue"
	"github.com/senseivictor/baza-de-date/internal/repository"
)

// fixedNow is the clock used by every test in this package.
var fixedNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func ts(y int, m time.Month, d, h, mi, s int) int64 {
	return time.Date(y, m, d, h, mi, s, 0, time.UTC).Unix()
}

func newStore(t *testing.T, seed bool) repository.Storage {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	if seed {
		_, err := database.SeedProducts(context.Background(), db, database.SQLite, database.DefaultProducts)
		require.NoError(t, err)
	}
	return repository.NewStore(db, database.SQLite)
}

func newDispatcher(s repository.Storage) *Dispatcher {
	d := NewDispatcher(s, bcrypt.MinCost)
	d.Now = clock
	return d
}

func count(t *testing.T, s repository.Storage, query string, args ...any) int {
	t.Helper()
	rows, err := s.Query(context.Background(), query, args...)
	require.NoError(t, err)
	return len(rows)
}

type recordingPublisher struct {
	events []queue.OrderPlacedEvent
	err    error
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, ev queue.OrderPlacedEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

var errBroker = errors.New("broker down")
