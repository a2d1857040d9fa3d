package hemnetfetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
)

// Options - адреса и "вежливость" запросов к Hemnet.
type Options struct {
	SearchPageURL  string
	SearchAPIURL   string
	GraphQLURL     string
	SubscriptionID string

	// Пустой список снимает ограничение (удобно для тестов с httptest).
	AllowedDomains []string
	Parallelism    int
	RandomDelay    time.Duration
	RequestTimeout time.Duration
	MaxBodySize    int
}

// HemnetFetcherAdapter отвечает за все взаимодействия с сайтом Hemnet.
// Он инкапсулирует в себе настроенный colly.Collector.
type HemnetFetcherAdapter struct {
	// один родительский коллектор, клоны разделяют с ним лимиты и http-клиент
	collector *colly.Collector
	opts      Options
}

// NewHemnetFetcherAdapter создает адаптер с общим для всех запросов LimitRule.
func NewHemnetFetcherAdapter(opts Options) (*HemnetFetcherAdapter, error) {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 50 * 1024 * 1024
	}

	collectorOpts := []colly.CollectorOption{
		colly.AllowURLRevisit(),
		colly.MaxBodySize(opts.MaxBodySize),
	}
	if len(opts.AllowedDomains) > 0 {
		collectorOpts = append(collectorOpts, colly.AllowedDomains(opts.AllowedDomains...))
	}
	c := colly.NewCollector(collectorOpts...)

	// Параллелизм здесь ограничивает HTTP-запросы ко всем доменам сразу,
	// сколько бы воркеров конвейера ни вызывало адаптер одновременно.
	err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: opts.Parallelism,
		RandomDelay: opts.RandomDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("hemnet adapter: failed to set limit rule: %w", err)
	}
	if opts.RequestTimeout > 0 {
		c.SetRequestTimeout(opts.RequestTimeout)
	}

	return &HemnetFetcherAdapter{
		collector: c,
		opts:      opts,
	}, nil
}

// clone возвращает "одноразовый" коллектор для одного запроса.
// Clone не копирует обработчики, поэтому маскировка и логирование
// навешиваются на каждый клон заново.
func (a *HemnetFetcherAdapter) clone(ctx context.Context) *colly.Collector {
	c := a.collector.Clone()
	c.Context = ctx

	extensions.RandomUserAgent(c)
	extensions.Referer(c)

	c.OnRequest(func(r *colly.Request) {
		slog.DebugContext(ctx, "HemnetFetcherAdapter: making request",
			slog.String("method", r.Method),
			slog.String("url", r.URL.String()),
		)
	})
	c.OnError(func(r *colly.Response, err error) {
		slog.WarnContext(ctx, "HemnetFetcherAdapter: request failed",
			slog.String("url", r.Request.URL.String()),
			slog.Int("status", r.StatusCode),
			slog.Any("error", err),
		)
	})
	return c
}
