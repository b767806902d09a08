package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA"))
)

// eventPrinter renders progress events as styled lines, or as NDJSON.
type eventPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

func newEventPrinter(w io.Writer, asJSON bool) *eventPrinter {
	return &eventPrinter{w: w, json: asJSON}
}

func (p *eventPrinter) Emit(ev domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.json {
		_ = json.NewEncoder(p.w).Encode(ev)
		return
	}
	fmt.Fprintln(p.w, formatEvent(ev))
}

func formatEvent(ev domain.Event) string {
	d := ev.Data
	text := d.Message
	if d.Total > 0 && d.Index > 0 {
		text = fmt.Sprintf("[%d/%d] %s", d.Index, d.Total, text)
	}
	switch ev.Type {
	case domain.EventTeamCreated, domain.EventTeamFound, domain.EventChannelCreated,
		domain.EventMemberAdded, domain.EventFolderCreated, domain.EventIconUploaded, domain.EventComplete:
		return successStyle.Render("✓ " + text)
	case domain.EventPending:
		if d.ElapsedSeconds > 0 {
			text = fmt.Sprintf("%s (%ds)", text, d.ElapsedSeconds)
		}
		return warningStyle.Render("… " + text)
	case domain.EventChannelError, domain.EventMemberError, domain.EventFolderError:
		if d.Error != "" {
			text += ": " + d.Error
		}
		return warningStyle.Render("! " + text)
	case domain.EventError:
		if d.Error != "" {
			text += ": " + d.Error
		}
		if d.RetryRecommended && d.WaitSeconds > 0 {
			text += fmt.Sprintf(" (retry in %ds)", d.WaitSeconds)
		}
		return errorStyle.Render("✗ " + text)
	default:
		return mutedStyle.Render("· " + text)
	}
}

func printResult(w io.Writer, res *domain.ProvisionResult) {
	if res == nil {
		return
	}
	status := "created"
	if res.Existing {
		status = "existing"
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(res.Team.DisplayName))
	fmt.Fprintf(w, "  ID:       %s\n", res.Team.ID)
	fmt.Fprintf(w, "  Status:   %s\n", status)
	if res.Channels != nil {
		fmt.Fprintf(w, "  Channels: %d created, %d existing, %d failed\n",
			res.Channels.Created, res.Channels.Existing, res.Channels.Failed)
	}
	if res.Members != nil {
		fmt.Fprintf(w, "  Members:  %d added, %d existing, %d failed\n",
			res.Members.Added, res.Members.Existing, res.Members.Failed)
	}
	if res.Folders != nil {
		fmt.Fprintf(w, "  Folders:  %d created in %d channels\n", res.Folders.TotalCreated, res.Folders.Succeeded)
	}
	if res.FolderError != "" {
		fmt.Fprintln(w, warningStyle.Render("  Folders:  "+res.FolderError))
	}
	if res.Icon != nil {
		fmt.Fprintf(w, "  Icon:     %s, %d bytes\n", res.Icon.ContentType, res.Icon.Bytes)
	}
	if res.IconError != "" {
		fmt.Fprintln(w, warningStyle.Render("  Icon:     "+res.IconError))
	}
	fmt.Fprintf(w, "  Duration: %s\n", res.Duration.Round(time.Millisecond))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
