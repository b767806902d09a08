// Package progress renders a live provisioning run: a spinner, the event
// log and a summary once the run returns.
package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/thomassicaud/teams-portal/internal/adapters/driving/tui/messages"
	"github.com/thomassicaud/teams-portal/internal/adapters/driving/tui/styles"
	"github.com/thomassicaud/teams-portal/internal/core/domain"
)

const maxLines = 200

// View is the progress model.
type View struct {
	styles  *styles.Styles
	title   string
	spinner spinner.Model
	events  <-chan domain.Event
	cancel  func()

	lines  []line
	status string
	done   bool
	result *domain.ProvisionResult
	err    error

	width  int
	height int
	ready  bool
}

type line struct {
	kind lineKind
	text string
}

type lineKind int

const (
	lineInfo lineKind = iota
	lineSuccess
	lineWarning
	lineError
)

// NewView creates a progress view reading events until the channel closes.
// cancel is called when the user interrupts the run.
func NewView(s *styles.Styles, title string, events <-chan domain.Event, cancel func()) *View {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	if s != nil {
		sp.Style = s.Spinner
	}
	return &View{
		styles:  s,
		title:   title,
		spinner: sp,
		events:  events,
		cancel:  cancel,
		status:  "Starting",
	}
}

// Init starts the spinner and the event pump.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.spinner.Tick, v.waitForEvent())
}

func (v *View) waitForEvent() tea.Cmd {
	if v.events == nil {
		return nil
	}
	events := v.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return messages.EventReceived{Event: ev}
	}
}

// Update handles messages.
func (v *View) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.ready = true
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !v.done && v.cancel != nil {
				v.cancel()
			}
			return v, tea.Quit
		}
		return v, nil

	case messages.EventReceived:
		v.record(msg.Event)
		return v, v.waitForEvent()

	case messages.RunFinished:
		v.drain()
		v.done = true
		v.result = msg.Result
		v.err = msg.Err
		return v, tea.Quit

	case messages.ErrorOccurred:
		v.done = true
		v.err = msg.Err
		return v, tea.Quit

	case spinner.TickMsg:
		if v.done {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}
	return v, nil
}

// drain records events still buffered when the run returns.
func (v *View) drain() {
	if v.events == nil {
		return
	}
	for {
		select {
		case ev, ok := <-v.events:
			if !ok {
				return
			}
			v.record(ev)
		default:
			return
		}
	}
}

func (v *View) record(ev domain.Event) {
	text := ev.Data.Message
	if ev.Data.Total > 0 && ev.Data.Index > 0 {
		text = fmt.Sprintf("[%d/%d] %s", ev.Data.Index, ev.Data.Total, text)
	}
	if ev.Data.Error != "" && ev.Type != domain.EventError {
		text += ": " + ev.Data.Error
	}

	kind := lineInfo
	switch ev.Type {
	case domain.EventTeamCreated, domain.EventTeamFound, domain.EventChannelCreated,
		domain.EventMemberAdded, domain.EventFolderCreated, domain.EventIconUploaded, domain.EventComplete:
		kind = lineSuccess
	case domain.EventPending, domain.EventChannelError, domain.EventMemberError, domain.EventFolderError:
		kind = lineWarning
	case domain.EventError:
		kind = lineError
		if ev.Data.Error != "" {
			text += ": " + ev.Data.Error
		}
		if ev.Data.RetryRecommended && ev.Data.WaitSeconds > 0 {
			text += fmt.Sprintf(" (retry in %ds)", ev.Data.WaitSeconds)
		}
	}

	switch ev.Type {
	case domain.EventStart, domain.EventProgress, domain.EventPending:
		v.status = ev.Data.Message
	}

	v.lines = append(v.lines, line{kind: kind, text: text})
	if len(v.lines) > maxLines {
		v.lines = v.lines[len(v.lines)-maxLines:]
	}
}

// View renders the model.
func (v *View) View() string {
	s := v.styles
	if s == nil {
		s = styles.DefaultStyles()
	}

	var b strings.Builder
	b.WriteString(s.Title.Render(v.title))
	b.WriteString("\n")

	for _, l := range v.visibleLines() {
		b.WriteString(v.renderLine(s, l))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case v.done && v.err != nil:
		b.WriteString(s.Error.Render("Failed: " + v.err.Error()))
	case v.done:
		b.WriteString(s.Box.Render(summary(v.result)))
	default:
		b.WriteString(v.spinner.View() + " " + s.Muted.Render(v.status))
		b.WriteString("\n")
		b.WriteString(s.Subtitle.Render("q to cancel"))
	}
	b.WriteString("\n")
	return b.String()
}

func (v *View) visibleLines() []line {
	if !v.ready || v.height <= 0 {
		return v.lines
	}
	// title, spacing and footer
	room := v.height - 6
	if room < 1 {
		room = 1
	}
	if len(v.lines) <= room {
		return v.lines
	}
	return v.lines[len(v.lines)-room:]
}

func (v *View) renderLine(s *styles.Styles, l line) string {
	var prefix string
	var style lipgloss.Style
	switch l.kind {
	case lineSuccess:
		prefix, style = "✓", s.Success
	case lineWarning:
		prefix, style = "!", s.Warning
	case lineError:
		prefix, style = "✗", s.Error
	default:
		prefix, style = "·", s.Muted
	}
	text := prefix + " " + l.text
	if v.width > 0 {
		text = lipgloss.NewStyle().MaxWidth(v.width).Render(text)
	}
	return style.Render(text)
}

func summary(res *domain.ProvisionResult) string {
	if res == nil {
		return "Done"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Team:     %s (%s)\n", res.Team.DisplayName, res.Team.ID)
	if res.Existing {
		b.WriteString("Status:   existing team\n")
	} else {
		b.WriteString("Status:   created\n")
	}
	fmt.Fprintf(&b, "Channels: %d created", res.ChannelsCreated())
	if res.Channels != nil && res.Channels.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", res.Channels.Failed)
	}
	fmt.Fprintf(&b, "\nMembers:  %d added", res.MembersAdded())
	if res.Members != nil && res.Members.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", res.Members.Failed)
	}
	if res.Folders != nil {
		fmt.Fprintf(&b, "\nFolders:  %d created", res.Folders.TotalCreated)
	}
	if res.FolderError != "" {
		fmt.Fprintf(&b, "\nFolders:  %s", res.FolderError)
	}
	if res.IconError != "" {
		fmt.Fprintf(&b, "\nIcon:     %s", res.IconError)
	} else if res.Icon != nil {
		b.WriteString("\nIcon:     uploaded")
	}
	fmt.Fprintf(&b, "\nDuration: %s", res.Duration.Round(time.Millisecond))
	return b.String()
}

// Result returns the outcome once the run finished.
func (v *View) Result() (*domain.ProvisionResult, error) {
	return v.result, v.err
}

// Done reports whether the run returned.
func (v *View) Done() bool {
	return v.done
}
