package usecase

import (
	"context"
	"errors"
	"fmt"
	"hemnet-images/internal/core/domain"
	"sync"
)

type MockListingSource struct {
	Token        string
	TokenErr     error
	Candidates   map[string]int64
	DiscoverErr  error
	Details      map[int64]domain.ListingDetails
	DetailErrs   map[int64]error
	mu           sync.Mutex
	DetailsCalls []int64
}

func (m *MockListingSource) FetchSearchToken(ctx context.Context) (string, error) {
	return m.Token, m.TokenErr
}

func (m *MockListingSource) DiscoverListings(ctx context.Context, token string) (map[string]int64, error) {
	if m.DiscoverErr != nil {
		return nil, m.DiscoverErr
	}
	out := make(map[string]int64, len(m.Candidates))
	for k, v := range m.Candidates {
		out[k] = v
	}
	return out, nil
}

func (m *MockListingSource) FetchListingDetails(ctx context.Context, listingID int64) (domain.ListingDetails, bool, error) {
	m.mu.Lock()
	m.DetailsCalls = append(m.DetailsCalls, listingID)
	m.mu.Unlock()
	if err := m.DetailErrs[listingID]; err != nil {
		return domain.ListingDetails{}, false, err
	}
	details, ok := m.Details[listingID]
	if !ok || details.ImageURLs == nil {
		return domain.ListingDetails{}, false, nil
	}
	return details, true, nil
}

type MockBlobStorage struct {
	mu      sync.Mutex
	Objects map[string][]byte
	PutErr  error
	GetErr  error
	Puts    int
}

func NewMockBlobStorage() *MockBlobStorage {
	return &MockBlobStorage{Objects: map[string][]byte{}}
}

func (m *MockBlobStorage) Put(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.Objects[key] = append([]byte(nil), data...)
	m.Puts++
	return nil
}

func (m *MockBlobStorage) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	data, ok := m.Objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key %s", key)
	}
	return data, nil
}

func (m *MockBlobStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Objects)
}

// MockPropertyStorage проверяет при Save, что все изображения записи уже в blob-хранилище.
type MockPropertyStorage struct {
	mu          sync.Mutex
	Records     map[string]domain.PropertyRecord
	Blobs       *MockBlobStorage
	ExistingErr error
	SaveErr     error
	GetErr      error
	Saves       int
	QueriedIDs  []string
	Violations  []string
}

func NewMockPropertyStorage(blobs *MockBlobStorage) *MockPropertyStorage {
	return &MockPropertyStorage{Records: map[string]domain.PropertyRecord{}, Blobs: blobs}
}

func (m *MockPropertyStorage) ExistingPropertyIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueriedIDs = append(m.QueriedIDs, ids...)
	if m.ExistingErr != nil {
		return nil, m.ExistingErr
	}
	out := map[string]struct{}{}
	for _, id := range ids {
		if _, ok := m.Records[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (m *MockPropertyStorage) Save(ctx context.Context, record domain.PropertyRecord) error {
	if m.Blobs != nil {
		for _, id := range record.ImageIDs {
			if _, err := m.Blobs.Get(ctx, id); err != nil {
				m.mu.Lock()
				m.Violations = append(m.Violations, record.PropertyID+"/"+id)
				m.mu.Unlock()
			}
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Records[record.PropertyID] = record
	m.Saves++
	return nil
}

func (m *MockPropertyStorage) Get(ctx context.Context, propertyID string) (*domain.PropertyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	record, ok := m.Records[propertyID]
	if !ok {
		return nil, domain.ErrPropertyNotFound
	}
	return &record, nil
}

type MockDownloader struct {
	mu     sync.Mutex
	Images map[string][]byte
	Calls  []string
}

func (m *MockDownloader) DownloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, imageURL)
	m.mu.Unlock()
	data, ok := m.Images[imageURL]
	if !ok {
		return nil, errors.New("404 Not Found")
	}
	return data, nil
}

func (m *MockDownloader) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

type MockMailSender struct {
	From string
	To   []string
	Raw  []byte
	Err  error
}

func (m *MockMailSender) SendRaw(ctx context.Context, from string, to []string, raw []byte) error {
	if m.Err != nil {
		return m.Err
	}
	m.From, m.To, m.Raw = from, to, raw
	return nil
}

type MockEvents struct {
	mu        sync.Mutex
	Published []domain.PropertyRecord
	Err       error
}

func (m *MockEvents) PublishIngested(ctx context.Context, record domain.PropertyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, record)
	return m.Err
}
