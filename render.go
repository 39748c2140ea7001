package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	userBubble = lipgloss.NewStyle().
			Background(lipgloss.Color("#1976D2")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1).
			MarginTop(1)

	botBubble = lipgloss.NewStyle().
			Background(lipgloss.Color("#F0F0F0")).
			Foreground(lipgloss.Color("#222222")).
			Padding(0, 1).
			MarginTop(1)

	traceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)
)

// bubbleRenderer prints chat turns, as styled bubbles on a terminal or as
// plain "You:"/"Bot:" lines otherwise
type bubbleRenderer struct {
	out    io.Writer
	styled bool
	width  int
}

func newBubbleRenderer(out io.Writer, styled bool) *bubbleRenderer {
	r := &bubbleRenderer{out: out, styled: styled, width: 80}
	if f, ok := out.(*os.File); ok && styled {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			r.width = w
		}
	}
	return r
}

// isTerminal returns true if f is connected to a terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// bubble renders text in style, wrapping at 70% of the line
func (r *bubbleRenderer) bubble(style lipgloss.Style, text string) string {
	limit := r.width * 7 / 10
	if lipgloss.Width(text)+2 > limit {
		style = style.Width(limit)
	}
	return style.Render(text)
}

func (r *bubbleRenderer) User(text string) {
	if !r.styled {
		fmt.Fprintf(r.out, "You: %s\n", text)
		return
	}
	bubble := r.bubble(userBubble, "You: "+text)
	fmt.Fprintln(r.out, lipgloss.PlaceHorizontal(r.width, lipgloss.Right, bubble))
}

func (r *bubbleRenderer) Bot(text string) {
	if !r.styled {
		fmt.Fprintf(r.out, "Bot: %s\n", text)
		return
	}
	fmt.Fprintln(r.out, r.bubble(botBubble, "Bot: "+text))
}

func (r *bubbleRenderer) Trace(t Trace) {
	line := fmt.Sprintf("matched intent '%s' with pattern '%s' (score: %.2f)", t.Tag, t.Pattern, t.Score)
	if r.styled {
		line = traceStyle.Render(line)
	}
	fmt.Fprintln(r.out, line)
}
