// Package terminal renders a chat view on a text terminal.
package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/MikeSquared-Agency/opsdesk/internal/chat"
)

const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorDim   = "\033[2m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"

	clearScreen  = "\033[2J\033[H"
	defaultWidth = 80
)

// Display prints views to out. In window mode only messages not yet shown
// are printed; fullscreen mode redraws the whole conversation every time.
type Display struct {
	out      io.Writer
	width    int
	styled   bool
	renderer *glamour.TermRenderer

	mu   sync.Mutex
	seen map[string]bool
}

// NewDisplay builds a display. Plain displays carry no escape sequences
// apart from the fullscreen redraw.
func NewDisplay(out io.Writer, width int, styled bool) (*Display, error) {
	if width <= 0 {
		width = defaultWidth
	}
	style := glamour.WithStandardStyle("notty")
	if styled {
		style = glamour.WithAutoStyle()
	}
	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(max(width-10, 20)))
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	return &Display{
		out:      out,
		width:    width,
		styled:   styled,
		renderer: renderer,
		seen:     make(map[string]bool),
	}, nil
}

// Width reports the width of the terminal behind fd.
func Width(fd int) int {
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

func IsTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

func (d *Display) color(code, s string) string {
	if !d.styled {
		return s
	}
	return code + s + colorReset
}

// Render prints v. Calling it repeatedly with the same view prints nothing
// new in window mode.
func (d *Display) Render(v chat.View) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var b strings.Builder
	msgs := v.Messages
	if v.Mode == chat.ModeFullscreen {
		b.WriteString(clearScreen)
		b.WriteString(d.color(colorBold+colorCyan, "opsdesk chat"))
		b.WriteString(d.color(colorGray, " · "+v.SessionToken))
		b.WriteString("\n")
		b.WriteString(d.color(colorDim, strings.Repeat("─", min(d.width, 80))))
		b.WriteString("\n")
		d.seen = make(map[string]bool)
	}

	for _, m := range msgs {
		if d.seen[m.ID] {
			continue
		}
		d.seen[m.ID] = true
		if err := d.writeMessage(&b, m, v.Language); err != nil {
			return err
		}
	}

	if v.PendingFile != nil {
		fmt.Fprintf(&b, "%s %s (%s)\n", d.color(colorGray, "attached:"), v.PendingFile.Name, formatSize(v.PendingFile.Size))
	}
	if v.Typing {
		b.WriteString(d.color(colorDim, "…"))
		b.WriteString("\n")
	}

	_, err := io.WriteString(d.out, b.String())
	return err
}

func (d *Display) writeMessage(b *strings.Builder, m chat.Message, language string) error {
	at := chat.FormatTime(m.Timestamp, language)
	if m.Sender == chat.SenderUser {
		fmt.Fprintf(b, "%s\n", d.color(colorGreen, "You · "+at))
		fmt.Fprintf(b, "  %s\n", m.Text)
		if m.Attachment != nil {
			fmt.Fprintf(b, "  %s %s (%s)\n", d.color(colorGray, "file:"), m.Attachment.Name, formatSize(m.Attachment.Size))
		}
		return nil
	}

	fmt.Fprintf(b, "%s\n", d.color(colorCyan, "Bot · "+at))
	rendered, err := d.renderer.Render(m.Text)
	if err != nil {
		return fmt.Errorf("render message %s: %w", m.ID, err)
	}
	b.WriteString(strings.TrimRight(rendered, "\n"))
	b.WriteString("\n")
	return nil
}

// Notify prints a notification on its own line. It satisfies chat.Notifier.
func (d *Display) Notify(n chat.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, "%s %s\n", d.color(colorBold+colorRed, "! "+n.Title), n.Description)
}

// Forget makes the next Render print the whole conversation again.
func (d *Display) Forget() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]bool)
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
