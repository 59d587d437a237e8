package browseconsole

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/domain/event"
	"freestylecal/internal/usecase/aggregation"
	"freestylecal/internal/usecase/catalog"
)

const maxListed = 15

type Reader interface {
	List(ctx context.Context, f catalog.Filter) ([]event.Event, error)
	Stats(ctx context.Context) (catalog.Stats, error)
	Facets(ctx context.Context) (catalog.Facets, error)
}

type Runner interface {
	Run(ctx context.Context, input aggregation.RunInput) (aggregation.RunResult, error)
}

type Options struct {
	RefreshInterval time.Duration
	// UpcomingFrom hides events dated before it when set.
	UpcomingFrom time.Time
}

type browseModel struct {
	ctx             context.Context
	reader          Reader
	runner          Runner
	refreshInterval time.Duration
	upcomingFrom    string

	facets       catalog.Facets
	countryIdx   int
	organizerIdx int

	events        []event.Event
	stats         catalog.Stats
	selectedIndex int
	scraping      bool
	status        string
}

type eventsLoadedMsg struct {
	events []event.Event
	stats  catalog.Stats
	facets catalog.Facets
	err    error
}

type scrapeDoneMsg struct {
	result aggregation.RunResult
	err    error
}

type tickMsg struct{}

// NewBrowseModel builds the event browser. runner may be nil, which
// disables the scrape key.
func NewBrowseModel(ctx context.Context, reader Reader, runner Runner, options Options) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	upcoming := ""
	if !options.UpcomingFrom.IsZero() {
		upcoming = options.UpcomingFrom.Format(event.CanonicalDateLayout)
	}

	return &browseModel{
		ctx:             logging.WithAttrs(ctx, slog.String("component", "usecase.browseconsole")),
		reader:          reader,
		runner:          runner,
		refreshInterval: interval,
		upcomingFrom:    upcoming,
		countryIdx:      -1,
		organizerIdx:    -1,
		status:          "cargando",
	}
}

func (m *browseModel) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.tickCmd())
}

func (m *browseModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadCmd(), m.tickCmd())
	case eventsLoadedMsg:
		if msg.err != nil {
			m.status = "error al cargar: " + msg.err.Error()
			return m, nil
		}
		m.events = msg.events
		m.stats = msg.stats
		m.facets = msg.facets
		m.clampSelection()
		m.status = fmt.Sprintf("%d eventos", len(m.events))
		return m, nil
	case scrapeDoneMsg:
		m.scraping = false
		if msg.err != nil {
			m.status = "scraping fallido: " + msg.err.Error()
			logging.Warn(m.ctx, "console scrape failed", slog.String("err", msg.err.Error()))
		} else {
			m.status = fmt.Sprintf("scraping completo: %d eventos de %d fuentes", msg.result.Summary.Total, len(msg.result.Outcomes))
		}
		return m, m.loadCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "actualizando"
			return m, m.loadCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.events)-1 {
				m.selectedIndex++
			}
			return m, nil
		case "c":
			m.countryIdx = cycle(m.countryIdx, len(m.facets.Countries))
			m.selectedIndex = 0
			return m, m.loadCmd()
		case "o":
			m.organizerIdx = cycle(m.organizerIdx, len(m.facets.Organizers))
			m.selectedIndex = 0
			return m, m.loadCmd()
		case "x":
			m.countryIdx, m.organizerIdx = -1, -1
			m.selectedIndex = 0
			return m, m.loadCmd()
		case "s":
			if m.runner == nil || m.scraping {
				return m, nil
			}
			m.scraping = true
			m.status = "scraping en curso"
			return m, m.scrapeCmd()
		}
	}
	return m, nil
}

func (m *browseModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))

	filter := m.filter()

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Calendario Freestyle"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"país=%s organizador=%s desde=%s total=%d próximos=%d",
		firstNonEmpty(filter.Country, "todos"),
		firstNonEmpty(filter.Organizer, "todos"),
		firstNonEmpty(filter.DateFrom, "-"),
		m.stats.Total,
		m.stats.Upcoming,
	)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Eventos"))
	builder.WriteString("\n")
	if len(m.events) == 0 {
		builder.WriteString(dimStyle.Render("- sin eventos"))
		builder.WriteString("\n\n")
	} else {
		start := 0
		if m.selectedIndex >= maxListed {
			start = m.selectedIndex - maxListed + 1
		}
		end := min(start+maxListed, len(m.events))
		for index := start; index < end; index++ {
			e := m.events[index]
			line := fmt.Sprintf("%-10s %-14s %s", firstNonEmpty(e.Date, "?"), firstNonEmpty(e.Country, "-"), e.Name)
			if index == m.selectedIndex {
				builder.WriteString(selectedStyle.Render("> " + line))
			} else {
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Detalle"))
	builder.WriteString("\n")
	if selected, ok := m.selected(); ok {
		builder.WriteString(fmt.Sprintf("Evento: %s\n", selected.Name))
		builder.WriteString(fmt.Sprintf("Fecha: %s %s\n", firstNonEmpty(selected.Date, "-"), selected.Time))
		builder.WriteString(fmt.Sprintf("Lugar: %s, %s, %s\n", firstNonEmpty(selected.Venue, "-"), firstNonEmpty(selected.City, "-"), firstNonEmpty(selected.Country, "-")))
		builder.WriteString(fmt.Sprintf("Organizador: %s\n", selected.Organizer))
		if selected.OfficialLink != "" {
			builder.WriteString(fmt.Sprintf("Link: %s\n", selected.OfficialLink))
		}
		if selected.Description != "" {
			builder.WriteString(dimStyle.Render(selected.Description))
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	} else {
		builder.WriteString(dimStyle.Render("- sin selección"))
		builder.WriteString("\n\n")
	}

	builder.WriteString(sectionStyle.Render("Estado"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "listo"))
	builder.WriteString("\n\n")

	keys := "j/k mover · c país · o organizador · x limpiar · g actualizar"
	if m.runner != nil {
		keys += " · s scrapear"
	}
	builder.WriteString(dimStyle.Render(keys + " · q salir"))
	builder.WriteString("\n")
	return builder.String()
}

func (m *browseModel) filter() catalog.Filter {
	f := catalog.Filter{DateFrom: m.upcomingFrom}
	if m.countryIdx >= 0 && m.countryIdx < len(m.facets.Countries) {
		f.Country = m.facets.Countries[m.countryIdx]
	}
	if m.organizerIdx >= 0 && m.organizerIdx < len(m.facets.Organizers) {
		f.Organizer = m.facets.Organizers[m.organizerIdx]
	}
	return f
}

func (m *browseModel) selected() (event.Event, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.events) {
		return event.Event{}, false
	}
	return m.events[m.selectedIndex], true
}

func (m *browseModel) clampSelection() {
	if m.selectedIndex >= len(m.events) {
		m.selectedIndex = len(m.events) - 1
	}
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
}

func (m *browseModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *browseModel) loadCmd() tea.Cmd {
	filter := m.filter()
	return func() tea.Msg {
		events, err := m.reader.List(m.ctx, filter)
		if err != nil {
			return eventsLoadedMsg{err: err}
		}
		stats, err := m.reader.Stats(m.ctx)
		if err != nil {
			return eventsLoadedMsg{err: err}
		}
		facets, err := m.reader.Facets(m.ctx)
		if err != nil {
			return eventsLoadedMsg{err: err}
		}
		return eventsLoadedMsg{events: events, stats: stats, facets: facets}
	}
}

func (m *browseModel) scrapeCmd() tea.Cmd {
	return func() tea.Msg {
		result, err := m.runner.Run(m.ctx, aggregation.RunInput{})
		return scrapeDoneMsg{result: result, err: err}
	}
}

// cycle steps through -1 (no filter) and then each index in turn.
func cycle(current int, size int) int {
	if size == 0 {
		return -1
	}
	next := current + 1
	if next >= size {
		return -1
	}
	return next
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
