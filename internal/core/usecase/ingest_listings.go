package usecase

import (
	"context"
	"fmt"
	"hemnet-images/internal/core/domain"
	"hemnet-images/internal/core/port"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// IngestOptions - настройки конвейера загрузки.
type IngestOptions struct {
	SourceName     string
	ListingWorkers int
	RequestTimeout time.Duration
}

// IngestListingsUseCase инкапсулирует весь конвейер:
// токен -> поиск -> дедупликация -> {детали -> изображения -> запись} по каждому объявлению.
type IngestListingsUseCase struct {
	source  port.ListingSourcePort
	storage port.PropertyStoragePort
	images  *ImageIngestor
	opts    IngestOptions
	nowFunc func() time.Time

	// Необязательные зависимости, могут быть nil.
	events  port.PropertyEventsPort
	journal port.RunJournalPort
}

// NewIngestListingsUseCase создает новый экземпляр use case.
func NewIngestListingsUseCase(
	source port.ListingSourcePort,
	storage port.PropertyStoragePort,
	images *ImageIngestor,
	events port.PropertyEventsPort,
	journal port.RunJournalPort,
	opts IngestOptions,
) *IngestListingsUseCase {
	if opts.ListingWorkers <= 0 {
		opts.ListingWorkers = 1
	}
	if opts.SourceName == "" {
		opts.SourceName = "hemnet"
	}
	return &IngestListingsUseCase{
		source:  source,
		storage: storage,
		images:  images,
		events:  events,
		journal: journal,
		opts:    opts,
		nowFunc: time.Now,
	}
}

// Execute выполняет один запуск. Ошибка возвращается только если сорвался
// общий для всех объявлений шаг (токен, поиск, дедупликация). Ошибки отдельных
// объявлений попадают в RunStats и не мешают остальным.
func (uc *IngestListingsUseCase) Execute(ctx context.Context) (domain.RunStats, error) {
	stats := domain.RunStats{StartedAt: uc.nowFunc().UTC()}
	slog.InfoContext(ctx, "IngestListings: starting run", slog.String("source", uc.opts.SourceName))

	if uc.journal != nil {
		if last, err := uc.journal.LastSuccessfulRun(ctx, uc.opts.SourceName); err != nil {
			slog.WarnContext(ctx, "IngestListings: could not read last run", slog.Any("error", err))
		} else if !last.IsZero() {
			slog.InfoContext(ctx, "IngestListings: previous successful run", slog.Time("at", last))
		}
	}

	unseen, err := uc.discover(ctx, &stats)
	if err != nil {
		stats.FinishedAt = uc.nowFunc().UTC()
		stats.RunError = err.Error()
		uc.recordRun(ctx, stats)
		return stats, err
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(uc.opts.ListingWorkers)

	for _, candidate := range domain.SortedCandidates(unseen) {
		g.Go(func() error {
			ingested, imageCount, err := uc.processListing(ctx, candidate)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				stats.Failed++
				stats.Failures = append(stats.Failures, domain.ListingFailure{
					PropertyID: candidate.PropertyID,
					ListingID:  candidate.ListingID,
					Error:      err.Error(),
				})
				slog.ErrorContext(ctx, "IngestListings: listing failed",
					slog.String("property_id", candidate.PropertyID),
					slog.Int64("listing_id", candidate.ListingID),
					slog.Any("error", err),
				)
			case ingested:
				stats.Ingested++
				stats.Images += imageCount
			default:
				stats.Skipped++
			}
			// соседние объявления продолжают работу
			return nil
		})
	}
	_ = g.Wait()

	stats.FinishedAt = uc.nowFunc().UTC()
	uc.recordRun(ctx, stats)

	slog.InfoContext(ctx, "IngestListings: run finished",
		slog.Int("discovered", stats.Discovered),
		slog.Int("new", stats.New),
		slog.Int("ingested", stats.Ingested),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
		slog.Int("images", stats.Images),
	)
	return stats, nil
}

func (uc *IngestListingsUseCase) discover(ctx context.Context, stats *domain.RunStats) (map[string]int64, error) {
	tokenCtx, cancel := withTimeout(ctx, uc.opts.RequestTimeout)
	token, err := uc.source.FetchSearchToken(tokenCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("use case: fetch search token: %w", domain.EnsureKind(err, domain.KindExtraction, "fetch search token"))
	}

	searchCtx, cancel := withTimeout(ctx, uc.opts.RequestTimeout)
	candidates, err := uc.source.DiscoverListings(searchCtx, token)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("use case: discover listings: %w", domain.EnsureKind(err, domain.KindDiscovery, "discover listings"))
	}
	stats.Discovered = len(candidates)

	dedupCtx, cancel := withTimeout(ctx, uc.opts.RequestTimeout)
	unseen, err := FilterUnseen(dedupCtx, uc.storage, candidates)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("use case: dedup: %w", err)
	}
	stats.New = len(unseen)
	return unseen, nil
}

// processListing обрабатывает одно объявление. Запись сохраняется только после
// того, как все изображения уже лежат в blob-хранилище.
func (uc *IngestListingsUseCase) processListing(ctx context.Context, candidate domain.ListingCandidate) (bool, int, error) {
	detailsCtx, cancel := withTimeout(ctx, uc.opts.RequestTimeout)
	details, ok, err := uc.source.FetchListingDetails(detailsCtx, candidate.ListingID)
	cancel()
	if err != nil {
		return false, 0, domain.EnsureKind(err, domain.KindDetailFetch, fmt.Sprintf("fetch listing %d", candidate.ListingID))
	}
	if !ok || len(details.ImageURLs) == 0 {
		slog.InfoContext(ctx, "IngestListings: listing has no images, skipping",
			slog.String("property_id", candidate.PropertyID),
			slog.Int64("listing_id", candidate.ListingID),
		)
		return false, 0, nil
	}

	imageIDs, err := uc.images.Ingest(ctx, details.ImageURLs)
	if err != nil {
		return false, 0, err
	}

	record := domain.PropertyRecord{
		PropertyID:    candidate.PropertyID,
		ListingID:     candidate.ListingID,
		StreetAddress: details.StreetAddress,
		ImageIDs:      imageIDs,
	}

	saveCtx, cancel := withTimeout(ctx, uc.opts.RequestTimeout)
	err = uc.storage.Save(saveCtx, record)
	cancel()
	if err != nil {
		return false, 0, domain.EnsureKind(err, domain.KindStoreWrite, "save property "+record.PropertyID)
	}

	slog.InfoContext(ctx, "IngestListings: property saved",
		slog.String("property_id", record.PropertyID),
		slog.String("street_address", record.StreetAddress),
		slog.Int("images", len(imageIDs)),
	)

	if uc.events != nil {
		if err := uc.events.PublishIngested(ctx, record); err != nil {
			// запись уже сохранена, событие - не часть единицы работы
			slog.WarnContext(ctx, "IngestListings: could not publish ingested event",
				slog.String("property_id", record.PropertyID),
				slog.Any("error", err),
			)
		}
	}
	return true, len(imageIDs), nil
}

func (uc *IngestListingsUseCase) recordRun(ctx context.Context, stats domain.RunStats) {
	if uc.journal == nil {
		return
	}
	if err := uc.journal.RecordRun(ctx, uc.opts.SourceName, stats); err != nil {
		slog.WarnContext(ctx, "IngestListings: could not record run", slog.Any("error", err))
	}
}
