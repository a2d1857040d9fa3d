package usecase

import (
	"context"
	"errors"
	"hemnet-images/internal/core/domain"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockRunJournal struct {
	mu   sync.Mutex
	Runs []domain.RunStats
	Last time.Time
}

func (m *MockRunJournal) RecordRun(ctx context.Context, source string, stats domain.RunStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Runs = append(m.Runs, stats)
	return nil
}

func (m *MockRunJournal) LastSuccessfulRun(ctx context.Context, source string) (time.Time, error) {
	return m.Last, nil
}

type ingestFixture struct {
	source     *MockListingSource
	storage    *MockPropertyStorage
	blobs      *MockBlobStorage
	downloader *MockDownloader
	events     *MockEvents
	journal    *MockRunJournal
	uc         *IngestListingsUseCase
}

func newIngestFixture() *ingestFixture {
	f := &ingestFixture{
		source: &MockListingSource{
			Token:      "tok123",
			Candidates: map[string]int64{},
			Details:    map[int64]domain.ListingDetails{},
			DetailErrs: map[int64]error{},
		},
		blobs:      NewMockBlobStorage(),
		downloader: &MockDownloader{Images: map[string][]byte{}},
		events:     &MockEvents{},
		journal:    &MockRunJournal{},
	}
	f.storage = NewMockPropertyStorage(f.blobs)
	images := NewImageIngestor(f.downloader, f.blobs, 3, time.Second)
	f.uc = NewIngestListingsUseCase(f.source, f.storage, images, f.events, f.journal, IngestOptions{
		ListingWorkers: 2,
		RequestTimeout: time.Second,
	})
	return f
}

func (f *ingestFixture) addListing(propertyID string, listingID int64, address string, urls ...string) {
	f.source.Candidates[propertyID] = listingID
	f.source.Details[listingID] = domain.ListingDetails{StreetAddress: address, ImageURLs: urls}
	for _, u := range urls {
		f.downloader.Images[u] = []byte("jpeg:" + u)
	}
}

func TestIngestListings_SkipsKnownProperties(t *testing.T) {
	f := newIngestFixture()
	f.addListing("a1", 1, "Storgatan 1", "https://img.example/a1-1.jpg")
	f.addListing("b2", 2, "Lillgatan 2", "https://img.example/b2-1.jpg", "https://img.example/b2-2.jpg")
	f.storage.Records["a1"] = domain.PropertyRecord{PropertyID: "a1", ListingID: 1}

	stats, err := f.uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Discovered)
	assert.Equal(t, 1, stats.New)
	assert.Equal(t, 1, stats.Ingested)
	assert.Equal(t, 2, stats.Images)
	assert.Equal(t, []int64{2}, f.source.DetailsCalls)

	record := f.storage.Records["b2"]
	assert.Equal(t, int64(2), record.ListingID)
	assert.Equal(t, "Lillgatan 2", record.StreetAddress)
	require.Len(t, record.ImageIDs, 2)
	first, err := f.blobs.Get(context.Background(), record.ImageIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "jpeg:https://img.example/b2-1.jpg", string(first))
	assert.Empty(t, f.storage.Violations)
}

func TestIngestListings_SecondRunIsNoop(t *testing.T) {
	f := newIngestFixture()
	f.addListing("a1", 1, "Storgatan 1", "https://img.example/a1-1.jpg")
	f.addListing("b2", 2, "Lillgatan 2", "https://img.example/b2-1.jpg")

	_, err := f.uc.Execute(context.Background())
	require.NoError(t, err)
	downloads := f.downloader.CallCount()
	saves := f.storage.Saves

	stats, err := f.uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, stats.New)
	assert.Equal(t, downloads, f.downloader.CallCount())
	assert.Equal(t, saves, f.storage.Saves)
	assert.Len(t, f.journal.Runs, 2)
}

func TestIngestListings_ListingWithoutImagesIsSkipped(t *testing.T) {
	f := newIngestFixture()
	f.addListing("c3", 3, "Tomgatan 3")
	f.source.Candidates["d4"] = 4 // детали не найдены

	stats, err := f.uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skipped)
	assert.Zero(t, stats.Ingested)
	assert.Empty(t, f.storage.Records)
	assert.Zero(t, f.blobs.Len())
}

func TestIngestListings_FailureDoesNotStopSiblings(t *testing.T) {
	f := newIngestFixture()
	f.addListing("e5", 5, "Felgatan 5", "https://img.example/e5-1.jpg")
	f.addListing("f6", 6, "Bragatan 6", "https://img.example/f6-1.jpg")
	f.addListing("g7", 7, "Trasiggatan 7", "https://img.example/g7-1.jpg")
	f.source.DetailErrs[5] = errors.New("502 Bad Gateway")
	delete(f.downloader.Images, "https://img.example/g7-1.jpg")

	stats, err := f.uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ingested)
	assert.Equal(t, 2, stats.Failed)
	assert.Contains(t, f.storage.Records, "f6")
	assert.NotContains(t, f.storage.Records, "e5")
	assert.NotContains(t, f.storage.Records, "g7")

	failed := map[string]bool{}
	for _, failure := range stats.Failures {
		failed[failure.PropertyID] = true
	}
	assert.True(t, failed["e5"])
	assert.True(t, failed["g7"])
}

func TestIngestListings_TokenFailureAbortsRun(t *testing.T) {
	f := newIngestFixture()
	f.source.TokenErr = domain.Errorf(domain.KindExtraction, "extract search token", "token pattern not found")
	f.addListing("a1", 1, "Storgatan 1", "https://img.example/a1-1.jpg")

	_, err := f.uc.Execute(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindExtraction))
	assert.Empty(t, f.source.DetailsCalls)
	require.Len(t, f.journal.Runs, 1)
	assert.False(t, f.journal.Runs[0].Succeeded())
}

func TestIngestListings_DiscoveryFailureAbortsRun(t *testing.T) {
	f := newIngestFixture()
	f.source.DiscoverErr = errors.New("connection reset")

	_, err := f.uc.Execute(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindDiscovery))
}

func TestIngestListings_DedupFailureAbortsRun(t *testing.T) {
	f := newIngestFixture()
	f.addListing("a1", 1, "Storgatan 1", "https://img.example/a1-1.jpg")
	f.storage.ExistingErr = errors.New("throttled")

	_, err := f.uc.Execute(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindStoreQuery))
	assert.Zero(t, f.downloader.CallCount())
}

func TestIngestListings_PublishesEventsAndIgnoresPublishErrors(t *testing.T) {
	f := newIngestFixture()
	f.addListing("a1", 1, "Storgatan 1", "https://img.example/a1-1.jpg")
	f.events.Err = errors.New("channel closed")

	stats, err := f.uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ingested)
	require.Len(t, f.events.Published, 1)
	assert.Equal(t, "a1", f.events.Published[0].PropertyID)
}

func TestIngestListings_SaveFailure(t *testing.T) {
	f := newIngestFixture()
	f.addListing("a1", 1, "Storgatan 1", "https://img.example/a1-1.jpg")
	f.storage.SaveErr = errors.New("conditional check failed")

	stats, err := f.uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Empty(t, f.events.Published)
	assert.Contains(t, stats.Failures[0].Error, string(domain.KindStoreWrite))
}
