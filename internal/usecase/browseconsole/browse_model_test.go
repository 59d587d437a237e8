package browseconsole

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"freestylecal/internal/domain/event"
	"freestylecal/internal/usecase/aggregation"
	"freestylecal/internal/usecase/catalog"
)

type stubReader struct {
	events  []event.Event
	filters []catalog.Filter
	err     error
}

func (s *stubReader) List(_ context.Context, f catalog.Filter) ([]event.Event, error) {
	s.filters = append(s.filters, f)
	if s.err != nil {
		return nil, s.err
	}
	return catalog.Apply(s.events, f), nil
}

func (s *stubReader) Stats(context.Context) (catalog.Stats, error) {
	return catalog.ComputeStats(s.events, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)), nil
}

func (s *stubReader) Facets(context.Context) (catalog.Facets, error) {
	return catalog.FacetsOf(s.events), nil
}

type stubRunner struct {
	calls int
}

func (r *stubRunner) Run(context.Context, aggregation.RunInput) (aggregation.RunResult, error) {
	r.calls++
	return aggregation.RunResult{
		Outcomes: make([]aggregation.SourceOutcome, 3),
		Summary:  aggregation.Summary{Total: 12},
	}, nil
}

func newReader() *stubReader {
	return &stubReader{events: []event.Event{
		{Name: "Red Bull Batalla Chile", Date: "2025-09-10", Country: "Chile", Organizer: "Red Bull"},
		{Name: "FMS Argentina J3", Date: "2025-10-01", Country: "Argentina", Organizer: "FMS"},
		{Name: "God Level Fest", Date: "2025-11-20", Country: "Chile", Organizer: "God Level", Venue: "Movistar Arena"},
	}}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// apply runs cmd synchronously and feeds its message back into the model.
func apply(t *testing.T, m *browseModel, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command")
	}
	m.Update(cmd())
}

func loadedModel(t *testing.T, reader *stubReader, runner Runner) *browseModel {
	t.Helper()
	m := NewBrowseModel(context.Background(), reader, runner, Options{}).(*browseModel)
	apply(t, m, m.loadCmd())
	return m
}

func TestLoadAndNavigate(t *testing.T) {
	m := loadedModel(t, newReader(), nil)

	if len(m.events) != 3 || m.status != "3 eventos" {
		t.Fatalf("after load events=%d status=%q", len(m.events), m.status)
	}

	m.Update(key("j"))
	m.Update(key("j"))
	m.Update(key("j"))
	if m.selectedIndex != 2 {
		t.Fatalf("selectedIndex = %d, want 2", m.selectedIndex)
	}
	m.Update(key("k"))
	if m.selectedIndex != 1 {
		t.Fatalf("selectedIndex = %d, want 1", m.selectedIndex)
	}

	view := m.View()
	if !strings.Contains(view, "Evento: FMS Argentina J3") {
		t.Fatalf("view missing detail:\n%s", view)
	}
	if strings.Contains(view, "s scrapear") {
		t.Fatalf("view offers scrape without a runner")
	}
}

func TestCycleCountryFilter(t *testing.T) {
	reader := newReader()
	m := loadedModel(t, reader, nil)

	_, cmd := m.Update(key("c"))
	apply(t, m, cmd)
	if got := reader.filters[len(reader.filters)-1].Country; got != "Argentina" {
		t.Fatalf("country filter = %q, want Argentina", got)
	}
	if len(m.events) != 1 {
		t.Fatalf("events = %d, want 1", len(m.events))
	}

	_, cmd = m.Update(key("c"))
	apply(t, m, cmd)
	if len(m.events) != 2 {
		t.Fatalf("chile events = %d, want 2", len(m.events))
	}

	_, cmd = m.Update(key("c"))
	apply(t, m, cmd)
	if got := reader.filters[len(reader.filters)-1].Country; got != "" || len(m.events) != 3 {
		t.Fatalf("after wrap country = %q events = %d", got, len(m.events))
	}
}

func TestScrapeKey(t *testing.T) {
	runner := &stubRunner{}
	m := loadedModel(t, newReader(), runner)

	_, cmd := m.Update(key("s"))
	if !m.scraping {
		t.Fatalf("scraping = false after s")
	}
	if _, again := m.Update(key("s")); again != nil {
		t.Fatalf("second s while scraping should be ignored")
	}

	_, reload := m.Update(cmd())
	if runner.calls != 1 || m.scraping {
		t.Fatalf("runner calls = %d scraping = %v", runner.calls, m.scraping)
	}
	if !strings.Contains(m.status, "12 eventos de 3 fuentes") {
		t.Fatalf("status = %q", m.status)
	}
	if reload == nil {
		t.Fatalf("expected reload after scrape")
	}
}

func TestLoadErrorKeepsPreviousEvents(t *testing.T) {
	reader := newReader()
	m := loadedModel(t, reader, nil)

	reader.err = errors.New("database is locked")
	apply(t, m, m.loadCmd())
	if len(m.events) != 3 || !strings.Contains(m.status, "database is locked") {
		t.Fatalf("events = %d status = %q", len(m.events), m.status)
	}
}

func TestUpcomingOptionSetsDateFrom(t *testing.T) {
	reader := newReader()
	m := NewBrowseModel(context.Background(), reader, nil, Options{
		UpcomingFrom: time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC),
	}).(*browseModel)
	apply(t, m, m.loadCmd())

	if len(m.events) != 2 || m.events[0].Name != "FMS Argentina J3" {
		t.Fatalf("events = %#v", m.events)
	}
}

func TestQuit(t *testing.T) {
	m := loadedModel(t, newReader(), nil)
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatalf("q returned nil command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("q did not quit")
	}
}
