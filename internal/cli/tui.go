package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/tiledgallery/pkg/gallery"
	"github.com/matzehuels/tiledgallery/pkg/layout"
	"github.com/matzehuels/tiledgallery/pkg/loader"
)

// Tile glyphs
const (
	glyphHidden  = "·"
	glyphQueued  = "○"
	glyphLoading = "◐"
	glyphLoaded  = "●"
	glyphError   = "✗"
	glyphEvicted = "-"
)

var (
	tuiTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	tuiCursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	tuiQueuedStyle  = lipgloss.NewStyle().Foreground(colorGray)
	tuiLoadingStyle = lipgloss.NewStyle().Foreground(colorYellow)
	tuiLoadedStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	tuiErrorStyle   = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// ScrollModel - Interactive loading simulation
// =============================================================================

// simTickMsg advances the virtual clock one tick.
type simTickMsg struct{}

// scrollModel is the bubbletea model for interactive simulation. The
// simulation is shared, so copies of the model scroll the same viewport.
type scrollModel struct {
	sim    *simulation
	height int // layout rows on screen
}

func newScrollModel(sim *simulation) scrollModel {
	return scrollModel{sim: sim, height: 15}
}

func (m scrollModel) tick() tea.Cmd {
	return tea.Tick(m.sim.so.tick, func(time.Time) tea.Msg { return simTickMsg{} })
}

func (m scrollModel) Init() tea.Cmd {
	return m.tick()
}

func (m scrollModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	step := m.sim.so.scrollStep
	page := m.sim.so.viewportHeight

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m.sim.scrollTo(m.sim.y - step)
		case "down", "j":
			m.sim.scrollTo(m.sim.y + step)
		case "pgup", "b":
			m.sim.scrollTo(m.sim.y - page)
		case "pgdown", "f", " ":
			m.sim.scrollTo(m.sim.y + page)
		case "home", "g":
			m.sim.scrollTo(0)
		case "end", "G":
			m.sim.scrollTo(m.sim.maxScroll)
		}
	case simTickMsg:
		m.sim.settle()
		m.sim.advance()
		return m, m.tick()
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m scrollModel) View() string {
	var b strings.Builder
	s := m.sim

	b.WriteString(tuiTitleStyle.Render("Gallery Loading"))
	b.WriteString(styleDim.Render(fmt.Sprintf("  scroll %.0f/%.0fpx  t=%s", s.y, s.maxScroll, s.clock.Sub(s.start))))
	b.WriteString("\n")
	b.WriteString(styleDim.Render("↑/↓ scroll  pgup/pgdn page  g/G top/bottom  q quit"))
	b.WriteString("\n\n")

	rows := s.lay.Rows
	first := 0
	for i, r := range rows {
		if rowY(r)+r.Height >= s.y {
			first = i
			break
		}
	}
	first = max(0, min(first, len(rows)-m.height))
	end := min(first+m.height, len(rows))

	for _, r := range rows[first:end] {
		cursor := "  "
		if y := rowY(r); y < s.y+s.so.viewportHeight && y+r.Height > s.y {
			cursor = tuiCursorStyle.Render("▸ ")
		}
		glyphs := make([]string, len(r.Tiles))
		for i, t := range r.Tiles {
			glyphs[i] = m.glyph(t.ID)
		}
		b.WriteString(fmt.Sprintf("%srow %3d  %s\n", cursor, r.Index, strings.Join(glyphs, " ")))
	}

	st := s.loader.Status()
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s loaded  %s loading  %s queued  %s failed  %s evicted  %s in memory\n",
		tuiLoadedStyle.Render(fmt.Sprint(len(st.Loaded))),
		tuiLoadingStyle.Render(fmt.Sprint(len(st.Loading))),
		tuiQueuedStyle.Render(fmt.Sprint(len(st.Queued))),
		tuiErrorStyle.Render(fmt.Sprint(len(st.Errored))),
		styleNumber.Render(fmt.Sprint(len(s.evicted))),
		styleNumber.Render(bytesString(s.used)),
	))
	return b.String()
}

// glyph renders one tile's load state.
func (m scrollModel) glyph(id string) string {
	if m.sim.evicted[id] {
		return styleDim.Render(glyphEvicted)
	}
	switch m.sim.loader.State(id) {
	case loader.StateQueued:
		return tuiQueuedStyle.Render(glyphQueued)
	case loader.StateLoading:
		return tuiLoadingStyle.Render(glyphLoading)
	case loader.StateLoaded:
		return tuiLoadedStyle.Render(glyphLoaded)
	case loader.StateError:
		return tuiErrorStyle.Render(glyphError)
	}
	return styleDim.Render(glyphHidden)
}

// rowY is the top edge of a row.
func rowY(r layout.Row) float64 {
	if len(r.Tiles) == 0 {
		return 0
	}
	return r.Tiles[0].Y
}

// runInteractive runs the simulation under keyboard control until the
// user quits, and returns the report at that point. Loader logs are
// dropped while the screen owns the terminal.
func runInteractive(ctx context.Context, in io.Reader, out io.Writer, images []gallery.Image, cfg layout.Config, opts loader.Options, so simOptions) (simReport, error) {
	sim, err := newSimulation(images, cfg, opts, so, log.New(io.Discard))
	if err != nil {
		return simReport{}, err
	}
	defer sim.close()

	p := tea.NewProgram(newScrollModel(sim), tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return simReport{}, ctx.Err()
		}
		return simReport{}, err
	}
	return sim.report(), nil
}
