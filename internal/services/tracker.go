package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/cache"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/config"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/database"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/engine"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/marketdata"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/models"
)

// RunReport is the full output of one tracking run: every classified
// outcome plus the notes skipped for lack of an evaluable basket.
type RunReport struct {
	RunID          string           `json:"run_id"`
	EvaluationDate time.Time        `json:"evaluation_date"`
	Outcomes       []models.Outcome `json:"outcomes"`
	SkippedNoteIDs []string         `json:"skipped_note_ids,omitempty"`
}

// TrackerService orchestrates one run: collect the ticker universe, fetch
// history, evaluate and classify every note, persist the results.
type TrackerService struct {
	repo        *database.ResultsRepository
	provider    marketdata.Provider
	seriesCache *cache.RedisSeriesCache
	cfg         *config.Config
}

// NewTrackerService creates a tracker. The repository and series cache may
// be nil; persistence and caching are then skipped.
func NewTrackerService(repo *database.ResultsRepository, provider marketdata.Provider, seriesCache *cache.RedisSeriesCache, cfg *config.Config) *TrackerService {
	return &TrackerService{
		repo:        repo,
		provider:    provider,
		seriesCache: seriesCache,
		cfg:         cfg,
	}
}

// RunEvaluation replays every note from issuance to evaluationDate. The
// bulk price fetch is all-or-nothing: a provider failure aborts the run
// with no partial results.
func (s *TrackerService) RunEvaluation(ctx context.Context, notes []models.Note, evaluationDate time.Time) (*RunReport, error) {
	evaluationDate = models.DateOnly(evaluationDate)

	tickers := tickerUniverse(notes)
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no resolvable tickers across %d notes, nothing to evaluate", len(notes))
	}

	start := s.windowStart(notes, evaluationDate)
	series, err := s.fetchSeries(ctx, tickers, start, evaluationDate)
	if err != nil {
		return nil, fmt.Errorf("market data fetch failed, aborting run: %w", err)
	}

	report := &RunReport{
		RunID:          uuid.New().String(),
		EvaluationDate: evaluationDate,
	}

	outcomes := make([]*models.Outcome, len(notes))
	workers := s.cfg.Tracker.MaxParallelEvaluators
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range notes {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = engine.EvaluateAndClassify(&notes[i], series, evaluationDate)
		}(i)
	}
	wg.Wait()

	for i, outcome := range outcomes {
		if outcome == nil {
			report.SkippedNoteIDs = append(report.SkippedNoteIDs, notes[i].ID)
			continue
		}
		report.Outcomes = append(report.Outcomes, *outcome)
	}

	s.persist(ctx, report)

	logrus.WithFields(logrus.Fields{
		"run_id":    report.RunID,
		"evaluated": len(report.Outcomes),
		"skipped":   len(report.SkippedNoteIDs),
		"tickers":   len(tickers),
	}).Info("Evaluation run complete")
	return report, nil
}

// windowStart picks the earliest date history is needed from: the oldest
// issue date, with a floor of a couple of weeks back so freshly issued
// sheets still chart, or a month back when no issue date parsed at all.
func (s *TrackerService) windowStart(notes []models.Note, evaluationDate time.Time) time.Time {
	var minIssue time.Time
	for i := range notes {
		issue := notes[i].IssueDate
		if issue.IsZero() {
			continue
		}
		if minIssue.IsZero() || issue.Before(minIssue) {
			minIssue = issue
		}
	}
	if minIssue.IsZero() {
		return evaluationDate.AddDate(0, 0, -s.cfg.MarketData.LookbackDays)
	}
	floor := evaluationDate.AddDate(0, 0, -s.cfg.MarketData.MinWindowDays)
	if minIssue.Before(floor) {
		return models.DateOnly(minIssue)
	}
	return floor
}

// fetchSeries reads through the cache and fetches the remainder from the
// provider in one batch.
func (s *TrackerService) fetchSeries(ctx context.Context, tickers []string, start, end time.Time) (map[string]models.PriceSeries, error) {
	out := make(map[string]models.PriceSeries, len(tickers))
	missing := make([]string, 0, len(tickers))

	for _, symbol := range tickers {
		if s.seriesCache != nil {
			if series, ok := s.seriesCache.Get(ctx, symbol, start, end); ok {
				out[symbol] = series
				continue
			}
		}
		missing = append(missing, symbol)
	}

	if len(missing) > 0 {
		fetched, err := s.provider.FetchDailyHistory(ctx, missing, start, end)
		if err != nil {
			return nil, err
		}
		for symbol, series := range fetched {
			out[symbol] = series
			if s.seriesCache != nil {
				s.seriesCache.Set(ctx, symbol, start, end, series)
			}
		}
	}
	return out, nil
}

// persist writes the run to the results store. Persistence problems are
// logged, not fatal: the report still goes out.
func (s *TrackerService) persist(ctx context.Context, report *RunReport) {
	if s.repo == nil {
		return
	}
	if err := s.repo.InsertRun(ctx, report.RunID, report.EvaluationDate, len(report.Outcomes)); err != nil {
		logrus.WithError(err).Warn("Failed to persist evaluation run")
		return
	}
	for i := range report.Outcomes {
		if err := s.repo.InsertOutcome(ctx, report.RunID, &report.Outcomes[i]); err != nil {
			logrus.WithError(err).WithField("note_id", report.Outcomes[i].NoteID).Warn("Failed to persist note outcome")
		}
	}
}

// tickerUniverse collects the distinct asset codes across all notes,
// preserving first-seen order for deterministic fetching.
func tickerUniverse(notes []models.Note) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range notes {
		for _, code := range notes[i].Tickers() {
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			out = append(out, code)
		}
	}
	return out
}
