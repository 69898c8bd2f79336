package picker

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikbrunner/cm/internal/model"
	"github.com/nikbrunner/cm/internal/search"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	locationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			MarginBottom(1)

	hintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// copiedMsg reports the outcome of a clipboard write.
type copiedMsg struct {
	location string
	err      error
}

// Picker is a simple TUI for selecting a bookmark from search results.
// Pressing / edits the query and re-runs the search over all bookmarks.
type Picker struct {
	all       []model.Bookmark
	results   []search.SearchResult
	query     string
	filter    textinput.Model
	filtering bool
	cursor    int
	selected  bool
	cancelled bool
	status    string
	width     int
	height    int
}

// New creates a new Picker over bookmarks, filtered by query.
// An empty query lists every bookmark.
func New(bookmarks []model.Bookmark, query string) Picker {
	filter := textinput.New()
	filter.Prompt = "/"
	filter.Placeholder = "Filter bookmarks..."
	filter.CharLimit = 200
	filter.SetValue(query)

	p := Picker{
		all:    bookmarks,
		filter: filter,
		width:  80,
		height: 24,
	}
	p.search(query)
	return p
}

func (p *Picker) search(query string) {
	p.query = query
	if query == "" {
		p.results = search.All(p.all)
	} else {
		p.results = search.FuzzySearchBookmarks(p.all, query)
	}
	if p.cursor >= len(p.results) {
		p.cursor = max(len(p.results)-1, 0)
	}
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil

	case copiedMsg:
		if msg.err != nil {
			p.status = "copy failed: " + msg.err.Error()
		} else {
			p.status = "copied " + msg.location
		}
		return p, nil

	case tea.KeyMsg:
		if p.filtering {
			return p.updateFilter(msg)
		}

		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			p.cancelled = true
			return p, tea.Quit

		case tea.KeyEnter:
			p.selected = true
			return p, tea.Quit

		case tea.KeyDown:
			p.moveDown()
			return p, nil

		case tea.KeyUp:
			p.moveUp()
			return p, nil
		}

		// Handle j/k vim keys
		if msg.Type == tea.KeyRunes {
			switch string(msg.Runes) {
			case "j":
				p.moveDown()
				return p, nil
			case "k":
				p.moveUp()
				return p, nil
			case "/":
				p.filtering = true
				return p, p.filter.Focus()
			case "y":
				if b := p.current(); b != nil {
					return p, copyLocation(b.Location.String())
				}
				return p, nil
			case "q":
				p.cancelled = true
				return p, tea.Quit
			}
		}
	}

	return p, nil
}

func (p Picker) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		p.cancelled = true
		return p, tea.Quit
	case tea.KeyEnter, tea.KeyEsc:
		p.filtering = false
		p.filter.Blur()
		return p, nil
	}

	var cmd tea.Cmd
	p.filter, cmd = p.filter.Update(msg)
	if v := p.filter.Value(); v != p.query {
		p.cursor = 0
		p.search(v)
	}
	return p, cmd
}

func (p *Picker) moveDown() {
	if p.cursor < len(p.results)-1 {
		p.cursor++
	}
}

func (p *Picker) moveUp() {
	if p.cursor > 0 {
		p.cursor--
	}
}

func (p Picker) current() *model.Bookmark {
	if p.cursor < len(p.results) {
		return p.results[p.cursor].Bookmark
	}
	return nil
}

func copyLocation(location string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{location: location, err: clipboard.WriteAll(location)}
	}
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	// Header
	b.WriteString(headerStyle.Render(fmt.Sprintf("Search: %s (%d results)", p.query, len(p.results))))
	b.WriteString("\n\n")
	if p.filtering {
		b.WriteString(p.filter.View())
		b.WriteString("\n\n")
	}

	// List items, scrolled so the cursor stays visible
	visible := max((p.height-8)/2, 1)
	start := 0
	if p.cursor >= visible {
		start = p.cursor - visible + 1
	}
	for i := start; i < len(p.results) && i < start+visible; i++ {
		result := p.results[i]
		cursor := "  "
		style := normalStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedStyle
		}

		name := highlight(result.Bookmark.Name, result.MatchedIndexes, style)
		location := locationStyle.Render(result.Bookmark.Location.String())

		fmt.Fprintf(&b, "%s%s\n", cursor, name)
		fmt.Fprintf(&b, "   %s\n", location)
	}

	// Footer
	b.WriteString("\n")
	if p.status != "" {
		b.WriteString(hintStyle.Render(p.status))
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render("j/k: move  /: filter  y: copy location  Enter: select  q/Esc: cancel"))

	return b.String()
}

// highlight renders name with matched characters emphasised. Indexes past
// the name belong to the document part of the search key.
func highlight(name string, matched []int, base lipgloss.Style) string {
	if len(matched) == 0 {
		return base.Render(name)
	}
	hit := make(map[int]bool, len(matched))
	for _, i := range matched {
		hit[i] = true
	}

	var b strings.Builder
	for i, r := range name {
		if hit[i] {
			b.WriteString(matchStyle.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}
	return b.String()
}

// SelectedBookmark returns the selected bookmark, or nil if cancelled.
func (p Picker) SelectedBookmark() *model.Bookmark {
	if p.cancelled || !p.selected {
		return nil
	}
	return p.current()
}

// Cancelled returns true if the user cancelled the selection.
func (p Picker) Cancelled() bool {
	return p.cancelled
}
