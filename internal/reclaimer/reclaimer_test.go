package reclaimer

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jsbattig/share-things-sub002/internal/cache"
	"github.com/jsbattig/share-things-sub002/internal/logging"
	"github.com/jsbattig/share-things-sub002/internal/models"
	"github.com/jsbattig/share-things-sub002/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type displayStub struct {
	processed map[string]bool
}

func (d *displayStub) AllFragmentsProcessed(id string) bool { return d.processed[id] }

type guardStub struct {
	busy map[string]bool
}

func (g *guardStub) InFlight(id string) bool { return g.busy[id] }

func newTestReclaimer(t *testing.T, display DisplayTracker, guard AssemblyGuard) (*Reclaimer, *cache.ContentCache) {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	c, err := cache.NewContentCache(logger)
	require.NoError(t, err)
	tr := progress.NewTracker(c, logger)
	r, err := New(c, tr, display, guard, logger, WithInterval(5*time.Millisecond))
	require.NoError(t, err)
	return r, c
}

func putFragment(c *cache.ContentCache, id string, index int) {
	c.PutFragment(context.Background(), &models.FragmentRecord{
		ContentID:     id,
		Index:         index,
		FragmentCount: 2,
		Ciphertext:    []byte{0x01},
		IV:            []byte{0x02},
	})
}

func TestReclaimContent(t *testing.T) {
	r, c := newTestReclaimer(t, &displayStub{}, &guardStub{})
	ctx := context.Background()

	c.PutMetadata(ctx, &models.ContentRecord{ContentID: "id-1", IsChunked: true, DeclaredFragmentCount: 2})
	putFragment(c, "id-1", 0)

	r.ReclaimContent(ctx, "id-1")

	_, ok := c.GetMetadata("id-1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.FragmentCount("id-1"))

	// idempotent
	r.ReclaimContent(ctx, "id-1")
}

func TestSweep_RemovesConfirmedOrphans(t *testing.T) {
	display := &displayStub{processed: map[string]bool{"orphan": true}}
	r, c := newTestReclaimer(t, display, &guardStub{})
	ctx := context.Background()

	putFragment(c, "orphan", 0)

	assert.Equal(t, 1, r.Sweep(ctx))
	assert.Equal(t, 0, c.FragmentCount("orphan"))
}

func TestSweep_SkipsUnprocessed(t *testing.T) {
	display := &displayStub{processed: map[string]bool{}}
	r, c := newTestReclaimer(t, display, &guardStub{})
	ctx := context.Background()

	putFragment(c, "orphan", 0)

	assert.Equal(t, 0, r.Sweep(ctx))
	assert.Equal(t, 1, c.FragmentCount("orphan"))
}

func TestSweep_NeverWhileAssemblyInFlight(t *testing.T) {
	display := &displayStub{processed: map[string]bool{"orphan": true}}
	guard := &guardStub{busy: map[string]bool{"orphan": true}}
	r, c := newTestReclaimer(t, display, guard)
	ctx := context.Background()

	putFragment(c, "orphan", 0)

	assert.Equal(t, 0, r.Sweep(ctx))
	assert.Equal(t, 1, c.FragmentCount("orphan"))

	// once the assembly finishes, the same sweep reclaims it
	guard.busy["orphan"] = false
	assert.Equal(t, 1, r.Sweep(ctx))
	assert.Equal(t, 0, c.FragmentCount("orphan"))
}

func TestSweep_IgnoresIDsWithMetadata(t *testing.T) {
	display := &displayStub{processed: map[string]bool{"id-1": true}}
	r, c := newTestReclaimer(t, display, &guardStub{})
	ctx := context.Background()

	c.PutMetadata(ctx, &models.ContentRecord{ContentID: "id-1", IsChunked: true, DeclaredFragmentCount: 2})
	putFragment(c, "id-1", 0)

	assert.Equal(t, 0, r.Sweep(ctx))
	assert.Equal(t, 1, c.FragmentCount("id-1"))
}

func TestRun_SweepsPeriodicallyUntilCancelled(t *testing.T) {
	display := &displayStub{processed: map[string]bool{"orphan": true}}
	r, c := newTestReclaimer(t, display, &guardStub{})

	putFragment(c, "orphan", 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return c.FragmentCount("orphan") == 0 },
		time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
