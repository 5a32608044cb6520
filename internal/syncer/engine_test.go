package syncer

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealtrack/internal/common"
	"mealtrack/internal/logging"
	"mealtrack/internal/models"
	"mealtrack/internal/remote"
	"mealtrack/internal/repositories/configs"
	"mealtrack/internal/repositories/foods"
	"mealtrack/internal/repositories/profiles"
	"mealtrack/internal/repositories/records"
	"mealtrack/internal/repositories/templates"

	_ "modernc.org/sqlite"
)

var dbSeq int

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	dbSeq++
	dsn := fmt.Sprintf("file:engine%d?mode=memory&cache=shared", dbSeq)
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE meal_records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  date TEXT NOT NULL,
  meals TEXT NOT NULL DEFAULT '{}',
  details TEXT,
  timestamp TEXT NOT NULL,
  synced INTEGER NOT NULL DEFAULT 0,
  UNIQUE (user_id, date)
);
CREATE TABLE meal_configs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL UNIQUE,
  meals TEXT NOT NULL DEFAULT '[]',
  timestamp TEXT NOT NULL,
  synced INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE templates (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  template_id TEXT NOT NULL,
  name TEXT NOT NULL,
  meals TEXT NOT NULL DEFAULT '[]',
  is_active INTEGER NOT NULL DEFAULT 0,
  timestamp TEXT NOT NULL,
  synced INTEGER NOT NULL DEFAULT 0,
  UNIQUE (user_id, template_id)
);
CREATE TABLE profiles (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL UNIQUE,
  data TEXT NOT NULL DEFAULT '{}',
  timestamp TEXT NOT NULL,
  synced INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE foods (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL COLLATE NOCASE,
  calories REAL,
  timestamp TEXT NOT NULL,
  synced INTEGER NOT NULL DEFAULT 0,
  UNIQUE (user_id, name)
);
`)
	require.NoError(t, err)

	return db
}

func setupRepos(db *sql.DB) Repositories {
	return Repositories{
		Records:   records.NewSQLiteRepository(db),
		Configs:   configs.NewSQLiteRepository(db),
		Templates: templates.NewSQLiteRepository(db),
		Profiles:  profiles.NewSQLiteRepository(db),
		Foods:     foods.NewSQLiteRepository(db),
	}
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeRemote is a map-backed remote store with failure injection and an
// optional block to hold a push open.
type fakeRemote struct {
	mu        sync.Mutex
	docs      map[string]remote.Document
	failPaths map[string]bool
	upserts   int

	block   chan struct{} // when set, Upsert waits for it to close
	entered chan struct{} // closed on first Upsert

	enterOnce sync.Once
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		docs:      map[string]remote.Document{},
		failPaths: map[string]bool{},
	}
}

func (f *fakeRemote) Upsert(ctx context.Context, path string, fields remote.Document) error {
	f.mu.Lock()
	f.upserts++
	f.mu.Unlock()

	if f.entered != nil {
		f.enterOnce.Do(func() { close(f.entered) })
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPaths[path] {
		return fmt.Errorf("injected failure for %s", path)
	}
	f.docs[path] = fields
	return nil
}

func (f *fakeRemote) Merge(ctx context.Context, path string, fields remote.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPaths[path] {
		return fmt.Errorf("injected failure for %s", path)
	}
	doc := f.docs[path]
	if doc == nil {
		doc = remote.Document{}
	}
	for k, v := range fields {
		doc[k] = v
	}
	f.docs[path] = doc
	return nil
}

func (f *fakeRemote) Get(ctx context.Context, path string) (remote.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[path]
	if !ok {
		return nil, common.ErrNotFound
	}
	return doc, nil
}

func (f *fakeRemote) List(ctx context.Context, collection string) ([]remote.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := collection + "/"
	var out []remote.Snapshot
	for path, doc := range f.docs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		key := strings.TrimPrefix(path, prefix)
		if strings.Contains(key, "/") {
			continue
		}
		out = append(out, remote.Snapshot{Key: key, Fields: doc})
	}
	return out, nil
}

func (f *fakeRemote) Close() error { return nil }

func (f *fakeRemote) doc(path string) remote.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[path]
}

func (f *fakeRemote) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts
}

func TestSyncAll_PushConvergence(t *testing.T) {
	db := setupDB(t)
	repos := setupRepos(db)
	rs := newFakeRemote()
	e := New(repos, rs, testLogger(), time.Second)
	ctx := context.Background()

	_, err := repos.Records.Save(ctx, "u1", "2024-03-01", map[string]bool{"breakfast": true}, nil)
	require.NoError(t, err)
	_, err = repos.Records.Save(ctx, "u1", "2024-03-02", map[string]bool{"dinner": true}, nil)
	require.NoError(t, err)
	_, err = repos.Configs.Save(ctx, "u1", []models.MealDefinition{{ID: "breakfast", Name: "Breakfast", Enabled: true}})
	require.NoError(t, err)
	_, err = repos.Templates.Save(ctx, "u1", "t1", "Workdays", nil, true)
	require.NoError(t, err)
	_, err = repos.Profiles.Save(ctx, "u1", map[string]any{"displayName": "Ann"})
	require.NoError(t, err)
	_, err = repos.Foods.Save(ctx, "u1", "Rice", nil)
	require.NoError(t, err)

	assert.True(t, e.SyncAll(ctx, "u1"))

	doc := rs.doc("users/u1/meals/2024-03-01")
	require.NotNil(t, doc)
	assert.Equal(t, true, doc["breakfast"])
	assert.Equal(t, "2024-03-01", doc["date"])

	require.NotNil(t, rs.doc("users/u1/meals/2024-03-02"))
	require.NotNil(t, rs.doc("users/u1/mealConfigs/default"))
	require.NotNil(t, rs.doc("users/u1/templates/t1"))
	require.NotNil(t, rs.doc("users/u1"))
	require.NotNil(t, rs.doc("users/u1/foods/rice"))

	pendingRecords, err := repos.Records.ListPending(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, pendingRecords)
	pendingConfigs, err := repos.Configs.ListPending(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, pendingConfigs)
	pendingTemplates, err := repos.Templates.ListPending(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, pendingTemplates)
	pendingProfiles, err := repos.Profiles.ListPending(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, pendingProfiles)
	pendingFoods, err := repos.Foods.ListPending(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, pendingFoods)
}

func TestSyncAll_PartialFailureIsolation(t *testing.T) {
	db := setupDB(t)
	repos := setupRepos(db)
	rs := newFakeRemote()
	e := New(repos, rs, testLogger(), time.Second)
	ctx := context.Background()

	for _, date := range []string{"2024-03-01", "2024-03-02", "2024-03-03"} {
		_, err := repos.Records.Save(ctx, "u1", date, map[string]bool{"lunch": true}, nil)
		require.NoError(t, err)
	}
	rs.failPaths["users/u1/meals/2024-03-02"] = true

	assert.True(t, e.SyncAll(ctx, "u1"))

	assert.NotNil(t, rs.doc("users/u1/meals/2024-03-01"))
	assert.Nil(t, rs.doc("users/u1/meals/2024-03-02"))
	assert.NotNil(t, rs.doc("users/u1/meals/2024-03-03"))

	pending, err := repos.Records.ListPending(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "2024-03-02", pending[0].Date)

	// next trigger retries the failed row
	rs.mu.Lock()
	rs.failPaths["users/u1/meals/2024-03-02"] = false
	rs.mu.Unlock()

	assert.True(t, e.SyncAll(ctx, "u1"))
	pending, err = repos.Records.ListPending(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSyncAll_TimeoutIsPerRowFailure(t *testing.T) {
	db := setupDB(t)
	repos := setupRepos(db)
	rs := newFakeRemote()
	rs.block = make(chan struct{}) // never closed: every upsert hangs until its deadline
	e := New(repos, rs, testLogger(), 50*time.Millisecond)
	ctx := context.Background()

	_, err := repos.Records.Save(ctx, "u1", "2024-03-01", map[string]bool{"a": true}, nil)
	require.NoError(t, err)
	_, err = repos.Records.Save(ctx, "u1", "2024-03-02", map[string]bool{"b": true}, nil)
	require.NoError(t, err)

	assert.True(t, e.SyncAll(ctx, "u1"), "a pass whose rows all time out still completes")

	pending, err := repos.Records.ListPending(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, pending, 2, "timed-out rows stay pending")
	assert.Equal(t, 2, rs.upsertCount(), "the second row is attempted after the first times out")
}

func TestSyncAll_SingleFlight(t *testing.T) {
	db := setupDB(t)
	repos := setupRepos(db)
	rs := newFakeRemote()
	rs.block = make(chan struct{})
	rs.entered = make(chan struct{})
	e := New(repos, rs, testLogger(), 5*time.Second)
	ctx := context.Background()

	_, err := repos.Records.Save(ctx, "u1", "2024-03-01", map[string]bool{"a": true}, nil)
	require.NoError(t, err)

	first := make(chan bool, 1)
	go func() { first <- e.SyncAll(ctx, "u1") }()

	<-rs.entered
	// a second trigger while the first pass is held open is a no-op
	assert.False(t, e.SyncAll(ctx, "u1"))

	close(rs.block)
	assert.True(t, <-first)
}

func TestSyncAll_EmptyUser(t *testing.T) {
	db := setupDB(t)
	e := New(setupRepos(db), newFakeRemote(), testLogger(), time.Second)
	assert.False(t, e.SyncAll(context.Background(), ""))
}

func TestPullRemote_OverwritesLocalButNotRecords(t *testing.T) {
	db := setupDB(t)
	repos := setupRepos(db)
	rs := newFakeRemote()
	e := New(repos, rs, testLogger(), time.Second)
	ctx := context.Background()

	// local state that the pull must overwrite
	_, err := repos.Configs.Save(ctx, "u1", []models.MealDefinition{{ID: "local", Name: "Local"}})
	require.NoError(t, err)
	// local history that the pull must never touch
	_, err = repos.Records.Save(ctx, "u1", "2024-03-01", map[string]bool{"lunch": true}, nil)
	require.NoError(t, err)

	rs.docs["users/u1/mealConfigs/default"] = remote.Document{
		"meals": []any{
			map[string]any{"id": "breakfast", "name": "Breakfast", "enabled": true, "cost": 3.5},
		},
		"updatedAt": "2024-03-01T00:00:00Z",
	}
	rs.docs["users/u1/templates/t9"] = remote.Document{
		"name":     "Remote Template",
		"meals":    []any{map[string]any{"id": "dinner", "name": "Dinner", "enabled": true}},
		"isActive": true,
	}
	rs.docs["users/u1"] = remote.Document{"displayName": "Remote Ann"}

	require.NoError(t, e.PullRemote(ctx, "u1"))

	cfg, err := repos.Configs.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cfg.Meals, 1)
	assert.Equal(t, "breakfast", cfg.Meals[0].ID)
	assert.Equal(t, 3.5, cfg.Meals[0].Cost)
	assert.Equal(t, models.StateSynced, cfg.State)

	tpl, err := repos.Templates.Get(ctx, "u1", "t9")
	require.NoError(t, err)
	assert.Equal(t, "Remote Template", tpl.Name)
	assert.True(t, tpl.IsActive)
	assert.Equal(t, models.StateSynced, tpl.State)

	p, err := repos.Profiles.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Remote Ann", p.Data["displayName"])

	// the record is still pending and untouched
	rec, err := repos.Records.Get(ctx, "u1", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, rec.State)
	assert.Equal(t, map[string]bool{"lunch": true}, rec.Meals)
}

func TestPullRemote_NothingRemoteIsNoop(t *testing.T) {
	db := setupDB(t)
	repos := setupRepos(db)
	e := New(repos, newFakeRemote(), testLogger(), time.Second)
	ctx := context.Background()

	_, err := repos.Configs.Save(ctx, "u1", []models.MealDefinition{{ID: "local"}})
	require.NoError(t, err)

	require.NoError(t, e.PullRemote(ctx, "u1"))

	cfg, err := repos.Configs.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Meals[0].ID)
	assert.Equal(t, models.StatePending, cfg.State)
}

func TestSubscribe_BusyTransitions(t *testing.T) {
	db := setupDB(t)
	repos := setupRepos(db)
	rs := newFakeRemote()
	rs.block = make(chan struct{})
	rs.entered = make(chan struct{})
	e := New(repos, rs, testLogger(), 5*time.Second)
	ctx := context.Background()

	_, err := repos.Records.Save(ctx, "u1", "2024-03-01", map[string]bool{"a": true}, nil)
	require.NoError(t, err)

	events, unsubscribe := e.Subscribe()
	defer unsubscribe()

	done := make(chan bool, 1)
	go func() { done <- e.SyncAll(ctx, "u1") }()

	<-rs.entered
	assert.True(t, <-events, "pass start must publish busy=true")

	close(rs.block)
	require.True(t, <-done)
	assert.False(t, <-events, "pass end must publish busy=false")
}

func TestSubscribe_UnsubscribeStopsDelivery(t *testing.T) {
	db := setupDB(t)
	e := New(setupRepos(db), newFakeRemote(), testLogger(), time.Second)

	events, unsubscribe := e.Subscribe()
	unsubscribe()

	require.True(t, e.SyncAll(context.Background(), "u1"))

	select {
	case v := <-events:
		t.Fatalf("unexpected delivery after unsubscribe: %v", v)
	default:
	}
}

func TestRun_SyncsOnReconnect(t *testing.T) {
	db := setupDB(t)
	repos := setupRepos(db)
	rs := newFakeRemote()
	e := New(repos, rs, testLogger(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := repos.Records.Save(ctx, "u1", "2024-03-01", map[string]bool{"a": true}, nil)
	require.NoError(t, err)

	online := make(chan bool)
	stopped := make(chan struct{})
	go func() {
		e.Run(ctx, online, "u1")
		close(stopped)
	}()

	online <- false
	online <- true

	require.Eventually(t, func() bool {
		pending, err := repos.Records.ListPending(context.Background(), "u1")
		return err == nil && len(pending) == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-stopped
}
