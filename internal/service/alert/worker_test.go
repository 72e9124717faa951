package alert

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corebank/ledger/internal/domain"
)

type countingFeed struct {
	mu    sync.Mutex
	seen  []uuid.UUID
	scans int
}

func (f *countingFeed) Evaluate(_ context.Context, entry domain.Transaction) ([]domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, entry.ID)
	return nil, nil
}

func (f *countingFeed) Scan(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	return 0, nil
}

func (f *countingFeed) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen), f.scans
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_EvaluatesObservedEntries(t *testing.T) {
	feed := &countingFeed{}
	d := NewDispatcher(feed, 8, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	d.Observe(ctx, completedEntry("1.00"), completedEntry("2.00"))

	require.Eventually(t, func() bool {
		seen, _ := feed.counts()
		return seen == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	feed := &countingFeed{}
	d := NewDispatcher(feed, 1, discardLogger())

	d.Observe(context.Background(), completedEntry("1.00"), completedEntry("2.00"), completedEntry("3.00"))
	assert.Len(t, d.queue, 1)
}

func TestScanner_PollsUntilCancelled(t *testing.T) {
	feed := &countingFeed{}
	s := NewScanner(feed, discardLogger(), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, scans := feed.counts()
		return scans >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scanner did not stop")
	}
}
