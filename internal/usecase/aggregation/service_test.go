package aggregation

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"freestylecal/internal/domain/event"
	"freestylecal/internal/infrastructure/cache"
	"freestylecal/internal/infrastructure/persistence/sqlite/model"
	"freestylecal/internal/infrastructure/persistence/sqlite/repository"
	"freestylecal/internal/ports"
)

type fakeSource struct {
	name      string
	organizer string
	result    ports.SourceResult
	onFetch   func(ctx context.Context)
	calls     int
}

func (s *fakeSource) Name() string      { return s.name }
func (s *fakeSource) Organizer() string { return s.organizer }

func (s *fakeSource) Fetch(ctx context.Context) ports.SourceResult {
	s.calls++
	if s.onFetch != nil {
		s.onFetch(ctx)
	}
	out := s.result
	out.Source = s.name
	out.Organizer = s.organizer
	return out
}

type recordingNotifier struct {
	notices []ports.RunNotice
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, notice ports.RunNotice) error {
	n.notices = append(n.notices, notice)
	return n.err
}

type recordingObserver struct {
	sources []string
	runs    int
	stored  int64
}

func (o *recordingObserver) ObserveSource(result ports.SourceResult, _ ports.UpsertReport, _ time.Time) {
	o.sources = append(o.sources, result.Source)
}

func (o *recordingObserver) ObserveRun(_ time.Duration, stored int64) {
	o.runs++
	o.stored = stored
}

type fixture struct {
	repo  *repository.EventRepository
	cache *cache.SQLiteCache
}

func setupFixture(t *testing.T) fixture {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "events.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	return fixture{repo: repository.NewEventRepository(db), cache: cache.NewSQLiteCache(db)}
}

func battleSources() []*fakeSource {
	return []*fakeSource{
		{
			name:      "redbull",
			organizer: "Red Bull",
			result: ports.SourceResult{Live: true, Events: []event.Event{
				{Name: "Red Bull Batalla Final Internacional", Date: "2025-12-14", City: "Santiago", Country: "Chile", Organizer: "Red Bull"},
				{Name: "Red Bull Batalla Argentina", Date: "2025-10-05", City: "Buenos Aires", Country: "Argentina", Organizer: "Red Bull"},
			}},
		},
		{
			name:      "fms",
			organizer: "FMS",
			result: ports.SourceResult{FallbackUsed: true, FailureReason: "status 503", Events: []event.Event{
				{Name: "FMS Argentina Jornada 1", Date: "2025-11-01", City: "Buenos Aires", Country: "Argentina", Organizer: "FMS"},
				{Name: "FMS Chile Jornada 1", Date: "2025-11-15", City: "Santiago", Country: "Chile", Organizer: "FMS"},
			}},
		},
		{
			name:      "godlevel",
			organizer: "God Level",
			result: ports.SourceResult{Live: true, Events: []event.Event{
				{Name: "God Level Fest", Date: "2025-09-20", City: "Santiago", Country: "Chile", Organizer: "God Level"},
			}},
		},
	}
}

func asEventSources(fakes []*fakeSource) []ports.EventSource {
	out := make([]ports.EventSource, 0, len(fakes))
	for _, f := range fakes {
		out = append(out, f)
	}
	return out
}

func TestRunStoresSummarizesAndExports(t *testing.T) {
	fx := setupFixture(t)
	ctx := context.Background()

	fakes := battleSources()
	var storedBeforeFMS int64 = -1
	fakes[1].onFetch = func(ctx context.Context) {
		n, err := fx.repo.Count(ctx)
		if err != nil {
			t.Errorf("Count() error = %v", err)
		}
		storedBeforeFMS = n
	}

	notifier := &recordingNotifier{}
	observer := &recordingObserver{}
	fixed := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	svc := NewService(fx.repo, asEventSources(fakes), fx.cache, notifier,
		WithObserver(observer),
		WithClock(func() time.Time { return fixed }),
		WithRunIDs(func() string { return "run-1" }),
	)

	csvPath := filepath.Join(t.TempDir(), "out", "eventos.csv")
	result, err := svc.Run(ctx, RunInput{Exports: []ExportTarget{{Path: csvPath}}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if storedBeforeFMS != 2 {
		t.Fatalf("events stored before second source = %d, want 2", storedBeforeFMS)
	}
	if result.RunID != "run-1" || len(result.Outcomes) != 3 {
		t.Fatalf("Run() result = %#v", result)
	}
	if got := result.Outcomes[1]; !got.FallbackUsed || got.Written != 2 || got.FailureReason != "status 503" {
		t.Fatalf("fms outcome = %#v", got)
	}

	summary := result.Summary
	if summary.Total != 5 {
		t.Fatalf("Summary.Total = %d, want 5", summary.Total)
	}
	wantOrganizers := []event.Count{{Key: "FMS", Count: 2}, {Key: "Red Bull", Count: 2}, {Key: "God Level", Count: 1}}
	if len(summary.ByOrganizer) != len(wantOrganizers) {
		t.Fatalf("ByOrganizer = %#v", summary.ByOrganizer)
	}
	for i, want := range wantOrganizers {
		if summary.ByOrganizer[i] != want {
			t.Fatalf("ByOrganizer[%d] = %#v, want %#v", i, summary.ByOrganizer[i], want)
		}
	}
	if len(summary.ByCountry) != 2 || summary.ByCountry[0] != (event.Count{Key: "Chile", Count: 3}) {
		t.Fatalf("ByCountry = %#v", summary.ByCountry)
	}
	if len(summary.Nearest) != 5 || summary.Nearest[0].Name != "God Level Fest" {
		t.Fatalf("Nearest = %#v", summary.Nearest)
	}

	file, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(rows) != 6 || rows[0][0] != "name" || rows[0][8] != "description" {
		t.Fatalf("export rows = %#v", rows)
	}

	if len(notifier.notices) != 3 || notifier.notices[2].Source != "godlevel" || notifier.notices[0].RunID != "run-1" {
		t.Fatalf("notices = %#v", notifier.notices)
	}
	if len(observer.sources) != 3 || observer.runs != 1 || observer.stored != 5 {
		t.Fatalf("observer = %#v", observer)
	}

	runs, err := svc.LastRuns(ctx)
	if err != nil {
		t.Fatalf("LastRuns() error = %v", err)
	}
	if len(runs) != 3 || runs[0].Source != "fms" || !runs[0].FallbackUsed || runs[0].FinishedAt != "2025-08-01T10:00:00Z" {
		t.Fatalf("LastRuns() = %#v", runs)
	}
}

func TestRunTwiceKeepsOneRowPerKey(t *testing.T) {
	fx := setupFixture(t)
	ctx := context.Background()
	svc := NewService(fx.repo, asEventSources(battleSources()), nil, nil)

	for i := 0; i < 2; i++ {
		if _, err := svc.Run(ctx, RunInput{}); err != nil {
			t.Fatalf("Run(#%d) error = %v", i+1, err)
		}
	}

	n, err := fx.repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 5 {
		t.Fatalf("Count() = %d, want 5", n)
	}
}

func TestRunSelectsSources(t *testing.T) {
	fx := setupFixture(t)
	fakes := battleSources()
	svc := NewService(fx.repo, asEventSources(fakes), nil, nil)

	result, err := svc.Run(context.Background(), RunInput{Sources: []string{"FMS", "fms", " "}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Outcomes) != 1 || fakes[1].calls != 1 || fakes[0].calls != 0 {
		t.Fatalf("Run() outcomes = %#v", result.Outcomes)
	}

	if _, err := svc.Run(context.Background(), RunInput{Sources: []string{"nope"}}); !errors.Is(err, errUnknownSource) {
		t.Fatalf("Run(unknown) error = %v, want errUnknownSource", err)
	}
}

func TestRunSkipsExportWithoutEvents(t *testing.T) {
	fx := setupFixture(t)
	empty := &fakeSource{name: "tickets", organizer: "Varios"}
	svc := NewService(fx.repo, []ports.EventSource{empty}, nil, nil)

	csvPath := filepath.Join(t.TempDir(), "eventos.csv")
	result, err := svc.Run(context.Background(), RunInput{Exports: []ExportTarget{{Path: csvPath}}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Exported) != 0 || result.Summary.Total != 0 {
		t.Fatalf("Run() result = %#v", result)
	}
	if _, err := os.Stat(csvPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Stat(export) error = %v, want not exist", err)
	}
}

func TestRunIgnoresNotifierFailure(t *testing.T) {
	fx := setupFixture(t)
	notifier := &recordingNotifier{err: errors.New("broker down")}
	svc := NewService(fx.repo, asEventSources(battleSources()[:1]), nil, notifier)

	result, err := svc.Run(context.Background(), RunInput{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Summary.Total != 2 || len(notifier.notices) != 1 {
		t.Fatalf("Run() result = %#v, notices = %d", result, len(notifier.notices))
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	fx := setupFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	fakes := battleSources()
	fakes[0].onFetch = func(context.Context) { cancel() }
	svc := NewService(fx.repo, asEventSources(fakes), nil, nil)

	result, err := svc.Run(ctx, RunInput{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if fakes[1].calls != 0 {
		t.Fatalf("second source fetched after cancel")
	}
	if len(result.Outcomes) != 1 {
		t.Fatalf("Run() outcomes = %#v", result.Outcomes)
	}
}

func TestRunRequiresContext(t *testing.T) {
	svc := NewService(nil, nil, nil, nil)
	if _, err := svc.Run(nil, RunInput{}); err == nil {
		t.Fatalf("Run(nil) expected error")
	}
}
