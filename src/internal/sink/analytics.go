package sink

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MasterAffan/logixia-sub000/src/internal/config"
	"github.com/MasterAffan/logixia-sub000/src/internal/core"
	"github.com/MasterAffan/logixia-sub000/src/internal/format"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

// AnalyticsSink forwards log entries to a third-party analytics
// collector as JSON batches. Flushes are rate-limited so a burst of
// logging cannot flood the collector.
type AnalyticsSink struct {
	cfg       config.AnalyticsConfig
	client    *fasthttp.Client
	formatter *format.JSONFormatter
	limiter   *rate.Limiter

	input     chan core.LogEntry
	done      chan struct{}
	wg        sync.WaitGroup
	startTime time.Time
	logger    *log.Logger

	batch   []core.LogEntry
	batchMu sync.Mutex

	totalProcessed atomic.Uint64
	totalBatches   atomic.Uint64
	failedBatches  atomic.Uint64
	lastProcessed  atomic.Value // time.Time
	lastBatchSent  atomic.Value // time.Time
}

// NewAnalyticsSink creates an analytics sink.
func NewAnalyticsSink(cfg config.AnalyticsConfig, logger *log.Logger, formatter *format.JSONFormatter) (*AnalyticsSink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("analytics sink requires a URL")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BatchDelayMS <= 0 {
		cfg.BatchDelayMS = 2000
	}
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = 10
	}
	if cfg.RetryBackoff <= 1 {
		cfg.RetryBackoff = 2.0
	}
	if cfg.FlushesPerSec <= 0 {
		cfg.FlushesPerSec = 5
	}

	a := &AnalyticsSink{
		cfg:       cfg,
		formatter: formatter,
		limiter:   rate.NewLimiter(rate.Limit(cfg.FlushesPerSec), 1),
		input:     make(chan core.LogEntry, cfg.BufferSize),
		batch:     make([]core.LogEntry, 0, cfg.BatchSize),
		done:      make(chan struct{}),
		startTime: time.Now(),
		logger:    logger,
	}
	a.lastProcessed.Store(time.Time{})
	a.lastBatchSent.Store(time.Time{})

	a.client = &fasthttp.Client{
		MaxConnsPerHost:     10,
		MaxIdleConnDuration: 10 * time.Second,
		ReadTimeout:         time.Duration(cfg.TimeoutSecs) * time.Second,
		WriteTimeout:        time.Duration(cfg.TimeoutSecs) * time.Second,
	}

	return a, nil
}

func (a *AnalyticsSink) Input() chan<- core.LogEntry {
	return a.input
}

func (a *AnalyticsSink) Start(ctx context.Context) error {
	a.wg.Add(2)
	go a.processLoop(ctx)
	go a.batchTimer(ctx)

	a.logger.Info("msg", "Analytics sink started",
		"component", "analytics_sink",
		"url", a.cfg.URL,
		"batch_size", a.cfg.BatchSize,
		"batch_delay_ms", a.cfg.BatchDelayMS)
	return nil
}

func (a *AnalyticsSink) Stop() {
	close(a.done)
	a.wg.Wait()

	a.batchMu.Lock()
	remaining := a.batch
	a.batch = nil
	a.batchMu.Unlock()
	if len(remaining) > 0 {
		a.sendBatch(remaining)
	}

	a.logger.Info("msg", "Analytics sink stopped",
		"total_processed", a.totalProcessed.Load(),
		"total_batches", a.totalBatches.Load(),
		"failed_batches", a.failedBatches.Load())
}

func (a *AnalyticsSink) GetStats() SinkStats {
	lastProc, _ := a.lastProcessed.Load().(time.Time)
	lastBatch, _ := a.lastBatchSent.Load().(time.Time)

	a.batchMu.Lock()
	pending := len(a.batch)
	a.batchMu.Unlock()

	return SinkStats{
		Type:           "analytics",
		TotalProcessed: a.totalProcessed.Load(),
		StartTime:      a.startTime,
		LastProcessed:  lastProc,
		Details: map[string]any{
			"url":             a.cfg.URL,
			"batch_size":      a.cfg.BatchSize,
			"pending_entries": pending,
			"total_batches":   a.totalBatches.Load(),
			"failed_batches":  a.failedBatches.Load(),
			"last_batch_sent": lastBatch,
		},
	}
}

func (a *AnalyticsSink) processLoop(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case entry, ok := <-a.input:
			if !ok {
				return
			}

			a.totalProcessed.Add(1)
			a.lastProcessed.Store(time.Now())

			a.batchMu.Lock()
			a.batch = append(a.batch, entry)
			if len(a.batch) >= a.cfg.BatchSize {
				batch := a.batch
				a.batch = make([]core.LogEntry, 0, a.cfg.BatchSize)
				a.batchMu.Unlock()
				go a.sendBatch(batch)
			} else {
				a.batchMu.Unlock()
			}

		case <-ctx.Done():
			return
		case <-a.done:
			return
		}
	}
}

func (a *AnalyticsSink) batchTimer(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(time.Duration(a.cfg.BatchDelayMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.batchMu.Lock()
			if len(a.batch) > 0 {
				batch := a.batch
				a.batch = make([]core.LogEntry, 0, a.cfg.BatchSize)
				a.batchMu.Unlock()
				go a.sendBatch(batch)
			} else {
				a.batchMu.Unlock()
			}

		case <-ctx.Done():
			return
		case <-a.done:
			return
		}
	}
}

// sendBatch posts a batch with retry and exponential backoff. Client
// errors (4xx) are not retried.
func (a *AnalyticsSink) sendBatch(batch []core.LogEntry) {
	if err := a.limiter.Wait(context.Background()); err != nil {
		a.failedBatches.Add(1)
		return
	}

	a.totalBatches.Add(1)
	a.lastBatchSent.Store(time.Now())

	body, err := a.formatter.FormatBatch(batch)
	if err != nil {
		a.logger.Error("msg", "Failed to format analytics batch",
			"component", "analytics_sink",
			"error", err,
			"batch_size", len(batch))
		a.failedBatches.Add(1)
		return
	}

	var lastErr error
	retryDelay := time.Duration(a.cfg.RetryDelayMS) * time.Millisecond

	for attempt := 0; attempt <= a.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelay)

			newDelay := time.Duration(float64(retryDelay) * a.cfg.RetryBackoff)
			timeout := time.Duration(a.cfg.TimeoutSecs) * time.Second
			if newDelay > timeout || newDelay < retryDelay {
				retryDelay = timeout
			} else {
				retryDelay = newDelay
			}
		}

		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()

		req.SetRequestURI(a.cfg.URL)
		req.Header.SetMethod("POST")
		req.Header.SetContentType("application/json")
		if a.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
		}
		req.SetBody(body)

		err := a.client.DoTimeout(req, resp, time.Duration(a.cfg.TimeoutSecs)*time.Second)
		statusCode := resp.StatusCode()

		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)

		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			a.logger.Warn("msg", "Analytics request failed",
				"component", "analytics_sink",
				"attempt", attempt+1,
				"error", err)
			continue
		}

		if statusCode >= 200 && statusCode < 300 {
			a.logger.Debug("msg", "Analytics batch sent",
				"component", "analytics_sink",
				"batch_size", len(batch),
				"status_code", statusCode)
			return
		}

		lastErr = fmt.Errorf("collector returned status %d", statusCode)
		if statusCode >= 400 && statusCode < 500 {
			a.logger.Error("msg", "Analytics batch rejected",
				"component", "analytics_sink",
				"status_code", statusCode,
				"batch_size", len(batch))
			a.failedBatches.Add(1)
			return
		}
	}

	a.logger.Error("msg", "Failed to send analytics batch after all retries",
		"component", "analytics_sink",
		"batch_size", len(batch),
		"retries", a.cfg.MaxRetries,
		"last_error", lastErr)
	a.failedBatches.Add(1)
}
