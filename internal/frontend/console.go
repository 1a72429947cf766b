// Package frontend holds the non-interactive console front-end used by the
// headless commands.
package frontend

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.Color("#A8D8EA")
	colorMuted  = lipgloss.Color("#596E79")
	colorAlert  = lipgloss.Color("#FF6B6B")
	colorGood   = lipgloss.Color("#4ECDC4")

	styleContext = lipgloss.NewStyle().Foreground(colorMuted)
	styleError   = lipgloss.NewStyle().Foreground(colorAlert).Bold(true)
	styleInfo    = lipgloss.NewStyle().Foreground(colorGood).Bold(true)
	styleGateway = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	styleRoute   = lipgloss.NewStyle().PaddingLeft(2)
)

// PromptFunc asks for the credential; ok is false on cancel.
type PromptFunc func() (secret string, ok bool)

// Console writes engine output to a terminal or log stream.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	prompt PromptFunc
	view   []string
}

// NewConsole creates a Console writing to out. A nil prompt uses an
// interactive huh password field.
func NewConsole(out io.Writer, prompt PromptFunc) *Console {
	if prompt == nil {
		prompt = HuhPrompt
	}
	return &Console{out: out, prompt: prompt}
}

// ReportError implements reconciler.Frontend.
func (c *Console) ReportError(context, detail string) {
	c.println(styleError.Render("✗") + " " + styleContext.Render(context+":") + " " + detail)
}

// ReportInfo implements reconciler.Frontend.
func (c *Console) ReportInfo(context, detail string) {
	c.println(styleInfo.Render("✓") + " " + styleContext.Render(context+":") + " " + detail)
}

// PromptCredential implements reconciler.Frontend.
func (c *Console) PromptCredential() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	secret, ok := c.prompt()
	if !ok || secret == "" {
		return "", false
	}
	return secret, true
}

// OnGatewayUpdated implements reconciler.Frontend.
func (c *Console) OnGatewayUpdated(gateway string) {
	c.println(styleContext.Render("Current gateway:") + " " + styleGateway.Render(gateway))
}

// OnRouteViewUpdated implements reconciler.Frontend. Unchanged views are not
// printed again.
func (c *Console) OnRouteViewUpdated(lines []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slices.Equal(lines, c.view) {
		return
	}
	c.view = slices.Clone(lines)

	var b strings.Builder
	b.WriteString(styleContext.Render(fmt.Sprintf("Routes via gateway (%d):", len(lines))))
	b.WriteByte('\n')
	for _, l := range lines {
		b.WriteString(styleRoute.Render(l))
		b.WriteByte('\n')
	}
	io.WriteString(c.out, b.String())
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

// HuhPrompt asks for the sudo password with a masked huh input.
func HuhPrompt() (string, bool) {
	var secret string
	err := huh.NewInput().
		Title("sudo password").
		Description("Needed to change the routing table").
		EchoMode(huh.EchoModePassword).
		Value(&secret).
		Run()
	if err != nil {
		if !errors.Is(err, huh.ErrUserAborted) {
			fmt.Println(styleError.Render("✗") + " prompt failed: " + err.Error())
		}
		return "", false
	}
	return secret, secret != ""
}
