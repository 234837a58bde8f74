// Package scheduler runs the periodic price broadcast and risk report jobs
// and answers chat commands.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"PortfolioSentinel/internal/analysis"
	"PortfolioSentinel/internal/gateway"
	"PortfolioSentinel/internal/hub"
	"PortfolioSentinel/internal/metrics"
	"PortfolioSentinel/internal/model"
	"PortfolioSentinel/internal/notifier"
	"PortfolioSentinel/internal/recorder"
)

// Market is the gateway surface used by the jobs.
type Market interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) map[string]model.Quote
	GetPrices(ctx context.Context, symbols []string) map[string]float64
}

// Analyst produces risk reports.
type Analyst interface {
	Analyze(ctx context.Context, holdings []model.Holding) (analysis.Report, error)
}

// Sender delivers notifications.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Options configures the jobs.
type Options struct {
	Interval      time.Duration // price cycle period
	RetryBackoff  time.Duration // pause after a failed cycle
	BatchSize     int
	ReportCron    string
	PortfolioName string
	Holdings      []model.Holding
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Market   Market
	Analyzer Analyst
	Hub      hub.Broadcaster
	Notifier Sender // nil disables notifications
	Recorder recorder.Recorder
	Clock    func() time.Time

	opts    Options
	ctx     context.Context
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	resumeAt time.Time
}

// NewScheduler creates a Scheduler. Zero options fall back to a 5s cycle,
// a 10s backoff and batches of gateway.MaxBatch.
func NewScheduler(ctx context.Context, market Market, analyzer Analyst, b hub.Broadcaster,
	sender Sender, rec recorder.Recorder, opts Options, logger *zap.Logger, m *metrics.Metrics) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 10 * time.Second
	}
	if opts.BatchSize <= 0 || opts.BatchSize > gateway.MaxBatch {
		opts.BatchSize = gateway.MaxBatch
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	logger = logger.With(zap.String("component", "scheduler"))
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLogger(cronLogger{logger.Sugar()})),
		Market:   market,
		Analyzer: analyzer,
		Hub:      b,
		Notifier: sender,
		Recorder: rec,
		Clock:    time.Now,
		opts:     opts,
		ctx:      ctx,
		logger:   logger,
		metrics:  m,
	}
}

// RegisterAll registers the price cycle and, when a cron spec is set, the
// risk report.
func (s *Scheduler) RegisterAll() error {
	cycle := cron.NewChain(cron.SkipIfStillRunning(cronLogger{s.logger.Sugar()})).
		Then(cron.FuncJob(s.PriceCycle))
	if _, err := s.Cron.AddJob(fmt.Sprintf("@every %s", s.opts.Interval), cycle); err != nil {
		return fmt.Errorf("register price cycle: %w", err)
	}
	if s.opts.ReportCron != "" {
		if _, err := s.Cron.AddFunc(s.opts.ReportCron, s.RiskReport); err != nil {
			return fmt.Errorf("register risk report: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started", zap.Duration("interval", s.opts.Interval))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// PriceCycle fetches prices for every subscribed symbol and broadcasts them.
// After a failure, cycles are skipped until the retry backoff has elapsed.
func (s *Scheduler) PriceCycle() {
	now := s.Clock()
	s.mu.Lock()
	waiting := now.Before(s.resumeAt)
	s.mu.Unlock()
	if waiting {
		s.metrics.BroadcastCycle("skipped")
		return
	}

	if err := s.broadcastPrices(); err != nil {
		s.mu.Lock()
		s.resumeAt = now.Add(s.opts.RetryBackoff)
		s.mu.Unlock()
		s.metrics.BroadcastCycle("failed")
		s.logger.Error("price cycle failed, backing off",
			zap.Duration("backoff", s.opts.RetryBackoff), zap.Error(err))
		return
	}
	s.metrics.BroadcastCycle("ok")
}

func (s *Scheduler) broadcastPrices() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in price cycle: %v", r)
		}
	}()
	if err := s.ctx.Err(); err != nil {
		return err
	}

	symbols := s.Hub.Symbols()
	if len(symbols) == 0 {
		return nil
	}
	quotes := make([]model.Quote, 0, len(symbols))
	prices := make(map[string]float64, len(symbols))
	for _, chunk := range chunks(symbols, s.opts.BatchSize) {
		for symbol, q := range s.Market.GetQuotes(s.ctx, chunk) {
			prices[symbol] = q.Price
			quotes = append(quotes, q)
		}
	}
	s.Hub.Broadcast(prices)

	if err := s.Recorder.RecordPrices(s.ctx, quotes); err != nil {
		s.logger.Warn("record price snapshot", zap.Error(err))
	}
	return nil
}

// RunReportNow executes the risk report immediately.
func (s *Scheduler) RunReportNow() {
	s.RiskReport()
}

// RiskReport analyzes the configured portfolio, sends the report and records
// the metrics.
func (s *Scheduler) RiskReport() {
	if len(s.opts.Holdings) == 0 {
		s.logger.Info("no holdings configured, skipping risk report")
		return
	}
	s.logger.Info("running risk report", zap.String("portfolio", s.opts.PortfolioName))
	report, err := s.Analyzer.Analyze(s.ctx, s.opts.Holdings)
	if err != nil {
		s.logger.Error("risk analysis", zap.Error(err))
		s.trySend(fmt.Sprintf("❌ Risk analysis failed: %v", err))
		return
	}
	s.trySend(notifier.FormatRiskReport(s.opts.PortfolioName, report))
	if err := s.Recorder.RecordRisk(s.ctx, s.opts.PortfolioName, report.Metrics); err != nil {
		s.logger.Error("record risk snapshot", zap.Error(err))
	}
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	switch strings.ToLower(fields[0]) {
	case "/risk":
		if len(s.opts.Holdings) == 0 {
			return "No holdings configured."
		}
		report, err := s.Analyzer.Analyze(ctx, s.opts.Holdings)
		if err != nil {
			return fmt.Sprintf("❌ Risk analysis failed: %v", err)
		}
		return notifier.FormatRiskReport(s.opts.PortfolioName, report)
	case "/price":
		if len(fields) != 2 {
			return "Usage: /price SYMBOL"
		}
		q, err := s.Market.GetQuote(ctx, strings.ToUpper(fields[1]))
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatQuote(q)
	case "/prices":
		symbols := parseSymbols(strings.Join(fields[1:], ","))
		if err := gateway.ValidateBatch(len(symbols)); err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatPrices(s.Market.GetPrices(ctx, symbols))
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.ctx, text, 3); err != nil {
		s.logger.Error("send notification", zap.Error(err))
	}
}

// parseSymbols splits a comma or space separated list, upper-cases and
// dedupes it.
func parseSymbols(raw string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		s := strings.ToUpper(strings.TrimSpace(part))
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func chunks(symbols []string, size int) [][]string {
	var out [][]string
	for len(symbols) > size {
		out = append(out, symbols[:size])
		symbols = symbols[size:]
	}
	if len(symbols) > 0 {
		out = append(out, symbols)
	}
	return out
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	*zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.Errorw(msg, append(keysAndValues, "error", err)...)
}
