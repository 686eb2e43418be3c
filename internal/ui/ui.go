// Package ui renders results in the terminal and lets the user pick one.
// Tables are drawn with lipgloss; the picker is a bubbletea list.
package ui

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user leaves the picker without choosing.
var ErrCancelled = errors.New("selection cancelled")

// Option is one entry offered by Select.
type Option struct {
	Title       string
	Description string
}

type item struct {
	index int
	title string
	desc  string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title }

var selectedStyle = lipgloss.NewStyle().
	Border(lipgloss.ThickBorder(), false, false, false, true).
	BorderForeground(lipgloss.Color("205")).
	Foreground(lipgloss.Color("205")).
	Padding(0, 0, 0, 1)

type picker struct {
	list   list.Model
	choice int
}

func newPicker(title string, options []Option) picker {
	items := make([]list.Item, len(options))
	for i, o := range options {
		items[i] = item{index: i, title: o.Title, desc: o.Description}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = selectedStyle.Foreground(lipgloss.Color("246"))

	l := list.New(items, delegate, 80, 20)
	l.Title = title
	l.SetShowStatusBar(false)

	return picker{list: l, choice: -1}
}

func (p picker) Init() tea.Cmd { return nil }

func (p picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.list.SetSize(msg.Width, msg.Height)
	case tea.KeyMsg:
		// Let the filter input have every key while the user types.
		if p.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if it, ok := p.list.SelectedItem().(item); ok {
				p.choice = it.index
			}
			return p, tea.Quit
		case "ctrl+c", "esc", "q":
			return p, tea.Quit
		}
	}

	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return p, cmd
}

func (p picker) View() string {
	return p.list.View()
}

// Select shows options in a full-screen list on stderr and returns the index
// of the chosen one.
func Select(title string, options []Option) (int, error) {
	if len(options) == 0 {
		return -1, fmt.Errorf("no items to select from")
	}

	final, err := tea.NewProgram(newPicker(title, options), tea.WithOutput(os.Stderr), tea.WithAltScreen()).Run()
	if err != nil {
		return -1, fmt.Errorf("running picker: %w", err)
	}

	p, ok := final.(picker)
	if !ok || p.choice < 0 {
		return -1, ErrCancelled
	}
	return p.choice, nil
}
