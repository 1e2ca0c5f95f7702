package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AdamBeresnev/esports-bracket/internal/bracket"
	"github.com/AdamBeresnev/esports-bracket/internal/metrics"
	"github.com/AdamBeresnev/esports-bracket/internal/store"
	"github.com/AdamBeresnev/esports-bracket/internal/utils"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

type memoryCache struct {
	mu       sync.Mutex
	brackets map[string]*bracket.Structure
	failGet  bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{brackets: make(map[string]*bracket.Structure)}
}

func (c *memoryCache) Get(_ context.Context, tournamentID string) (*bracket.Structure, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, false, errors.New("cache down")
	}
	b, ok := c.brackets[tournamentID]
	return b, ok, nil
}

func (c *memoryCache) Set(_ context.Context, b *bracket.Structure) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.brackets[b.TournamentID] = b
	return nil
}

func (c *memoryCache) Delete(_ context.Context, tournamentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.brackets, tournamentID)
	return nil
}

func (c *memoryCache) has(tournamentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.brackets[tournamentID]
	return ok
}

type recordedEvent struct {
	kind         string
	tournamentID string
}

type recordingNotifier struct {
	events []recordedEvent
}

func (n *recordingNotifier) BracketUpdated(tournamentID string, _ any) {
	n.events = append(n.events, recordedEvent{"updated", tournamentID})
}

func (n *recordingNotifier) BracketDeleted(tournamentID string) {
	n.events = append(n.events, recordedEvent{"deleted", tournamentID})
}

type testEnv struct {
	db       *sqlx.DB
	store    *store.BracketStore
	service  *BracketService
	cache    *memoryCache
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:       db,
		store:    store.NewBracketStore(db),
		cache:    newMemoryCache(),
		notifier: &recordingNotifier{},
	}
	engine := bracket.NewEngine(clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))
	opts = append([]Option{WithCache(env.cache), WithNotifier(env.notifier)}, opts...)
	env.service = NewBracketService(db, env.store, engine, opts...)
	return env
}

func TestGenerateBracket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	settings := &bracket.Settings{Type: bracket.SingleElimination, Seeding: bracket.SeedManual}
	data, err := env.service.GenerateBracket(ctx, "t-1", []string{" A ", "B", "C", "D"}, settings)
	require.NoError(t, err)

	assert.Len(t, data.Bracket.Nodes, 3)
	assert.Len(t, data.ReadyMatches, 2)
	assert.False(t, data.IsComplete)
	assert.Nil(t, data.Champion)
	assert.Equal(t, "A", *data.ReadyMatches[0].Team1, "team ids are trimmed")

	record, err := env.store.GetBracket(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, 1, record.Version)

	assert.True(t, env.cache.has("t-1"))
	assert.Equal(t, []recordedEvent{{"updated", "t-1"}}, env.notifier.events)
}

func TestGenerateBracketDefaults(t *testing.T) {
	env := newTestEnv(t, WithDefaults(bracket.Settings{Type: bracket.DoubleElimination, GrandFinalReset: true}))

	data, err := env.service.GenerateBracket(context.Background(), "t-1", []string{"A", "B", "C", "D"}, nil)
	require.NoError(t, err)

	assert.Equal(t, bracket.FormatDoubleElimination, data.Bracket.Format)
	assert.True(t, data.Bracket.Settings.GrandFinalReset)
	assert.Len(t, data.Bracket.Nodes, 7)
}

func TestGenerateBracketErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.GenerateBracket(ctx, "t-1", []string{"A"}, nil)
	assert.ErrorIs(t, err, bracket.ErrInvalidInput)

	_, err = env.service.GetBracket(ctx, "t-1")
	assert.ErrorIs(t, err, ErrBracketNotFound, "nothing is stored for rejected input")

	_, err = env.service.GenerateBracket(ctx, "t-1", []string{"A", "B"}, nil)
	require.NoError(t, err)
	_, err = env.service.GenerateBracket(ctx, "t-1", []string{"A", "B"}, nil)
	assert.ErrorIs(t, err, store.ErrBracketExists)
}

func TestReportResultPlaysToCompletion(t *testing.T) {
	reg := prometheus.NewRegistry()
	env := newTestEnv(t, WithMetrics(metrics.NewPrometheus(reg)))
	ctx := context.Background()

	_, err := env.service.GenerateBracket(ctx, "t-1", []string{"A", "B", "C", "D"}, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		current, err := env.service.GetBracket(ctx, "t-1")
		require.NoError(t, err)
		require.NotEmpty(t, current.ReadyMatches)

		match := current.ReadyMatches[0]
		data, err := env.service.ReportResult(ctx, "t-1", bracket.Result{MatchID: match.ID, Winner: *match.Team1})
		require.NoError(t, err)

		assert.Equal(t, match.ID, data.UpdatedMatch.ID)
		assert.Equal(t, bracket.MatchCompleted, data.UpdatedMatch.Status)
	}

	data, err := env.service.GetBracket(ctx, "t-1")
	require.NoError(t, err)
	assert.True(t, data.IsComplete)
	require.NotNil(t, data.Champion)
	assert.Equal(t, "A", *data.Champion)
	assert.Equal(t, bracket.BracketCompleted, data.Bracket.Metadata.Status)

	record, err := env.store.GetBracket(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, 4, record.Version)
	assert.Equal(t, "completed", record.Status)

	assert.Len(t, env.notifier.events, 4)
}

func TestReportResultErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	data, err := env.service.GenerateBracket(ctx, "t-1", []string{"A", "B", "C"}, nil)
	require.NoError(t, err)
	first := data.ReadyMatches[0]

	var bye bracket.Node
	for _, n := range data.CompletedMatches {
		bye = n
	}

	testCases := []struct {
		name         string
		tournamentID string
		result       bracket.Result
		expected     error
	}{
		{
			name:         "unknown tournament",
			tournamentID: "t-2",
			result:       bracket.Result{MatchID: first.ID, Winner: "A"},
			expected:     ErrBracketNotFound,
		},
		{
			name:         "unknown match",
			tournamentID: "t-1",
			result:       bracket.Result{MatchID: uuid.New(), Winner: "A"},
			expected:     bracket.ErrNotFound,
		},
		{
			name:         "winner not in match",
			tournamentID: "t-1",
			result:       bracket.Result{MatchID: first.ID, Winner: "C"},
			expected:     bracket.ErrInvalidResult,
		},
		{
			name:         "bye already decided",
			tournamentID: "t-1",
			result:       bracket.Result{MatchID: bye.ID, Winner: "C"},
			expected:     bracket.ErrMatchClosed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.service.ReportResult(ctx, tc.tournamentID, tc.result)
			assert.ErrorIs(t, err, tc.expected)
		})
	}

	record, err := env.store.GetBracket(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, 1, record.Version, "rejected results are not stored")
}

func TestGetBracketCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.GenerateBracket(ctx, "t-1", []string{"A", "B"}, nil)
	require.NoError(t, err)

	t.Run("miss fills the cache", func(t *testing.T) {
		require.NoError(t, env.cache.Delete(ctx, "t-1"))

		data, err := env.service.GetBracket(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, "t-1", data.Bracket.TournamentID)
		assert.True(t, env.cache.has("t-1"))
	})

	t.Run("hit skips the database", func(t *testing.T) {
		cached := &bracket.Structure{TournamentID: "t-9"}
		require.NoError(t, env.cache.Set(ctx, cached))

		data, err := env.service.GetBracket(ctx, "t-9")
		require.NoError(t, err)
		assert.Same(t, cached, data.Bracket)
	})

	t.Run("cache failure falls back to the database", func(t *testing.T) {
		env.cache.failGet = true
		defer func() { env.cache.failGet = false }()

		data, err := env.service.GetBracket(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, "t-1", data.Bracket.TournamentID)
	})
}

func TestBrokenStoredBracket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	data, err := env.service.GenerateBracket(ctx, "t-1", []string{"A", "B", "C", "D"}, nil)
	require.NoError(t, err)
	ready := data.ReadyMatches
	require.Len(t, ready, 2)

	// Winner that never played the match
	broken := data.Bracket.Clone()
	for i := range broken.Nodes {
		if broken.Nodes[i].ID == ready[0].ID {
			broken.Nodes[i].Winner = utils.Ptr("Z")
			broken.Nodes[i].Status = bracket.MatchCompleted
		}
	}
	document, err := json.Marshal(broken)
	require.NoError(t, err)
	_, err = env.db.Exec("UPDATE brackets SET document = ? WHERE tournament_id = ?", document, "t-1")
	require.NoError(t, err)
	require.NoError(t, env.cache.Delete(ctx, "t-1"))

	_, err = env.service.GetBracket(ctx, "t-1")
	assert.ErrorIs(t, err, bracket.ErrInconsistentState)
	assert.False(t, env.cache.has("t-1"))

	_, err = env.service.ReportResult(ctx, "t-1", bracket.Result{MatchID: ready[1].ID, Winner: *ready[1].Team1})
	assert.ErrorIs(t, err, bracket.ErrInconsistentState)
}

func TestDeleteBracket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.GenerateBracket(ctx, "t-1", []string{"A", "B"}, nil)
	require.NoError(t, err)

	require.NoError(t, env.service.DeleteBracket(ctx, "t-1"))
	assert.False(t, env.cache.has("t-1"))
	assert.Equal(t, recordedEvent{"deleted", "t-1"}, env.notifier.events[len(env.notifier.events)-1])

	_, err = env.service.GetBracket(ctx, "t-1")
	assert.ErrorIs(t, err, ErrBracketNotFound)
	assert.ErrorIs(t, env.service.DeleteBracket(ctx, "t-1"), ErrBracketNotFound)
}

func TestListBrackets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	data, err := env.service.GenerateBracket(ctx, "t-1", []string{"A", "B"}, nil)
	require.NoError(t, err)
	_, err = env.service.GenerateBracket(ctx, "t-2", []string{"A", "B"}, nil)
	require.NoError(t, err)

	match := data.ReadyMatches[0]
	_, err = env.service.ReportResult(ctx, "t-1", bracket.Result{MatchID: match.ID, Winner: "A"})
	require.NoError(t, err)

	completed, err := env.service.ListBrackets(ctx, bracket.BracketCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "t-1", completed[0].TournamentID)

	setup, err := env.service.ListBrackets(ctx, bracket.BracketSetup)
	require.NoError(t, err)
	require.Len(t, setup, 1)
	assert.Equal(t, "t-2", setup[0].TournamentID)
}
