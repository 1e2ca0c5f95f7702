package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/esports-bracket/internal/bracket"
	"github.com/AdamBeresnev/esports-bracket/internal/metrics"
	"github.com/AdamBeresnev/esports-bracket/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrBracketNotFound = errors.New("bracket not found")

// Cache holds read copies of brackets. Failures are logged and never fail a request.
type Cache interface {
	Get(ctx context.Context, tournamentID string) (*bracket.Structure, bool, error)
	Set(ctx context.Context, b *bracket.Structure) error
	Delete(ctx context.Context, tournamentID string) error
}

// Notifier pushes bracket changes to whoever is watching the tournament.
type Notifier interface {
	BracketUpdated(tournamentID string, payload any)
	BracketDeleted(tournamentID string)
}

type BracketService struct {
	db       *sqlx.DB
	store    *store.BracketStore
	engine   *bracket.Engine
	cache    Cache
	notifier Notifier
	metrics  metrics.Recorder
	defaults bracket.Settings
	logger   *slog.Logger
}

type Option func(*BracketService)

func WithCache(c Cache) Option {
	return func(s *BracketService) { s.cache = c }
}

func WithNotifier(n Notifier) Option {
	return func(s *BracketService) { s.notifier = n }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(s *BracketService) { s.metrics = m }
}

// WithDefaults sets the settings used when a bracket is generated without any.
func WithDefaults(settings bracket.Settings) Option {
	return func(s *BracketService) { s.defaults = settings }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *BracketService) { s.logger = l }
}

func NewBracketService(db *sqlx.DB, store *store.BracketStore, engine *bracket.Engine, opts ...Option) *BracketService {
	s := &BracketService{
		db:       db,
		store:    store,
		engine:   engine,
		cache:    noCache{},
		notifier: noNotifier{},
		metrics:  metrics.NoOp{},
		defaults: bracket.DefaultSettings(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BracketData is everything a client needs to draw and drive a bracket.
type BracketData struct {
	Bracket          *bracket.Structure  `json:"bracket"`
	ReadyMatches     []bracket.Node      `json:"readyMatches"`
	CompletedMatches []bracket.Node      `json:"completedMatches"`
	IsComplete       bool                `json:"isComplete"`
	Champion         *string             `json:"champion,omitempty"`
	Layout           []bracket.RoundView `json:"layout"`
}

func newBracketData(b *bracket.Structure) *BracketData {
	data := &BracketData{
		Bracket:          b,
		ReadyMatches:     bracket.ReadyMatches(b),
		CompletedMatches: bracket.CompletedMatches(b),
		IsComplete:       bracket.IsComplete(b),
		Layout:           bracket.Layout(b),
	}
	if champion, ok := bracket.Champion(b); ok {
		data.Champion = &champion
	}
	return data
}

type ResultData struct {
	*BracketData
	UpdatedMatch bracket.Node `json:"updatedMatch"`
}

// GenerateBracket builds and stores the bracket of a tournament. Nil settings fall back to the
// configured defaults.
func (s *BracketService) GenerateBracket(ctx context.Context, tournamentID string, teams []string, settings *bracket.Settings) (*BracketData, error) {
	if settings == nil {
		settings = &s.defaults
	}

	b, err := s.engine.Generate(tournamentID, normalizeTeams(teams), *settings)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.store.CreateBracket(ctx, tx, b); err != nil {
		return nil, fmt.Errorf("failed to save bracket: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "bracket generated",
		"tournament_id", tournamentID,
		"format", b.Format,
		"teams", b.Metadata.TeamsCount,
		"matches", len(b.Nodes),
	)
	s.metrics.BracketGenerated(string(b.Format), b.Metadata.TeamsCount)

	data := newBracketData(b)
	s.cacheBracket(ctx, b)
	s.notifier.BracketUpdated(tournamentID, data)
	return data, nil
}

func (s *BracketService) GetBracket(ctx context.Context, tournamentID string) (*BracketData, error) {
	b, found, err := s.cache.Get(ctx, tournamentID)
	if err != nil {
		s.logger.WarnContext(ctx, "bracket cache read failed", "tournament_id", tournamentID, "error", err)
	}
	s.metrics.CacheLookup(found)
	if found {
		return newBracketData(b), nil
	}

	record, err := s.store.GetBracket(ctx, tournamentID)
	if err != nil {
		return nil, notFound(tournamentID, err)
	}
	b, err = record.Decode()
	if err != nil {
		return nil, err
	}

	s.cacheBracket(ctx, b)
	return newBracketData(b), nil
}

// ReportResult applies a match result. The read, advance and write happen in one transaction
// and the write only succeeds if nobody stored a newer version in between.
func (s *BracketService) ReportResult(ctx context.Context, tournamentID string, result bracket.Result) (*ResultData, error) {
	start := time.Now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	record, err := s.store.GetBracketTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, notFound(tournamentID, err)
	}
	b, err := record.Decode()
	if err != nil {
		return nil, err
	}

	next, err := s.engine.Advance(b, result)
	if err != nil {
		s.metrics.ResultReported(string(b.Format), "rejected", time.Since(start))
		s.logger.WarnContext(ctx, "match result rejected",
			"tournament_id", tournamentID,
			"match_id", result.MatchID,
			"error", err,
		)
		return nil, err
	}

	if err := s.store.UpdateBracketTx(ctx, tx, next, record.Version); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.metrics.ResultReported(string(next.Format), "accepted", time.Since(start))
	s.logger.InfoContext(ctx, "match result recorded",
		"tournament_id", tournamentID,
		"match_id", result.MatchID,
		"winner", result.Winner,
	)
	if champion, ok := bracket.Champion(next); ok && !bracket.IsComplete(b) {
		s.metrics.BracketCompleted(string(next.Format))
		s.logger.InfoContext(ctx, "bracket completed", "tournament_id", tournamentID, "champion", champion)
	}

	updated, _ := bracket.FindNode(next, result.MatchID)
	data := &ResultData{BracketData: newBracketData(next), UpdatedMatch: *updated}

	s.cacheBracket(ctx, next)
	s.notifier.BracketUpdated(tournamentID, data.BracketData)
	return data, nil
}

func (s *BracketService) DeleteBracket(ctx context.Context, tournamentID string) error {
	if err := s.store.DeleteBracket(ctx, tournamentID); err != nil {
		return notFound(tournamentID, err)
	}

	if err := s.cache.Delete(ctx, tournamentID); err != nil {
		s.logger.WarnContext(ctx, "bracket cache delete failed", "tournament_id", tournamentID, "error", err)
	}
	s.logger.InfoContext(ctx, "bracket deleted", "tournament_id", tournamentID)
	s.notifier.BracketDeleted(tournamentID)
	return nil
}

// ListBrackets returns the stored brackets with the given status, newest first.
func (s *BracketService) ListBrackets(ctx context.Context, status bracket.BracketStatus) ([]*bracket.Structure, error) {
	records, err := s.store.ListBracketsByStatus(ctx, status)
	if err != nil {
		return nil, err
	}

	brackets := make([]*bracket.Structure, 0, len(records))
	for i := range records {
		b, err := records[i].Decode()
		if err != nil {
			return nil, err
		}
		brackets = append(brackets, b)
	}
	return brackets, nil
}

// ParseMatchID is a small helper for handlers receiving ids as strings.
func ParseMatchID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: match id %q", bracket.ErrInvalidInput, raw)
	}
	return id, nil
}

func (s *BracketService) cacheBracket(ctx context.Context, b *bracket.Structure) {
	if err := s.cache.Set(ctx, b); err != nil {
		s.logger.WarnContext(ctx, "bracket cache write failed", "tournament_id", b.TournamentID, "error", err)
	}
}

func notFound(tournamentID string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: tournament %s: %w", ErrBracketNotFound, tournamentID, err)
	}
	return err
}

type noCache struct{}

func (noCache) Get(context.Context, string) (*bracket.Structure, bool, error) { return nil, false, nil }
func (noCache) Set(context.Context, *bracket.Structure) error                 { return nil }
func (noCache) Delete(context.Context, string) error                          { return nil }

type noNotifier struct{}

func (noNotifier) BracketUpdated(string, any) {}
func (noNotifier) BracketDeleted(string)      {}
