package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/salestaxio/poskit/analytics"
)

func TestTracker_TrackAndReport(t *testing.T) {
	tracker := analytics.NewTracker()

	tracker.Track(analytics.Event{Name: "sync.success", IntegrationID: "square"})
	tracker.Track(analytics.Event{Name: "sync.success", IntegrationID: "square"})
	tracker.Track(analytics.Event{Name: "sync.failure", IntegrationID: "square"})
	tracker.Track(analytics.Event{Name: "sync.success", IntegrationID: "shopify"})

	tracker.Close()

	report := tracker.Report("square", time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.Equal(t, int64(3), report.Total)
	require.Equal(t, int64(2), report.ByName["sync.success"])
	require.Equal(t, int64(1), report.ByName["sync.failure"])
}

func TestTracker_FillsIDAndTimestamp(t *testing.T) {
	store := analytics.NewMemoryStore()
	tracker := analytics.NewTracker(analytics.WithStore(store))

	tracker.Track(analytics.Event{Name: "sync.success", IntegrationID: "square"})
	tracker.Close()

	events := store.Query("square", time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.Len(t, events, 1)
	require.NotEmpty(t, events[0].ID)
	require.False(t, events[0].Timestamp.IsZero())
}

func TestTracker_TimeRangeFilters(t *testing.T) {
	store := analytics.NewMemoryStore()
	tracker := analytics.NewTracker(analytics.WithStore(store))

	old := time.Now().Add(-time.Hour)
	tracker.Track(analytics.Event{Name: "sync.success", IntegrationID: "square", Timestamp: old})
	tracker.Track(analytics.Event{Name: "sync.success", IntegrationID: "square"})
	tracker.Close()

	report := tracker.Report("square", time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.Equal(t, int64(1), report.Total)
}

func TestTracker_DropsOnOverflow(t *testing.T) {
	// A store that blocks until released, so the buffer fills up.
	release := make(chan struct{})
	store := &blockingStore{release: release}

	tracker := analytics.NewTracker(
		analytics.WithStore(store),
		analytics.WithBufferSize(2),
	)

	for i := 0; i < 10; i++ {
		tracker.Track(analytics.Event{Name: "sync.success", IntegrationID: "square"})
	}

	require.Greater(t, tracker.Dropped(), int64(0))

	close(release)
	tracker.Close()
}

func TestTracker_TrackAfterCloseDoesNotPanic(t *testing.T) {
	tracker := analytics.NewTracker()
	tracker.Close()

	tracker.Track(analytics.Event{Name: "sync.success", IntegrationID: "square"})
	require.Equal(t, int64(1), tracker.Dropped())
}

func TestTracker_CloseIsIdempotent(t *testing.T) {
	tracker := analytics.NewTracker()
	tracker.Close()
	tracker.Close()
}

type blockingStore struct {
	release chan struct{}
}

func (s *blockingStore) Append(analytics.Event) {
	<-s.release
}

func (s *blockingStore) Query(string, time.Time, time.Time) []analytics.Event {
	return nil
}
