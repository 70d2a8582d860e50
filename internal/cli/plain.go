// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/peterh/liner"
	"github.com/sourcegraph/conc"

	"github.com/calmistry/assistant-tui/internal/backend"
	"github.com/calmistry/assistant-tui/internal/config"
	"github.com/calmistry/assistant-tui/internal/export"
	"github.com/calmistry/assistant-tui/internal/logging"
	"github.com/calmistry/assistant-tui/internal/model"
	"github.com/calmistry/assistant-tui/internal/session"
	"github.com/calmistry/assistant-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Teal).
			Bold(true)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(styles.Lavender).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(styles.Teal).
				Bold(true)

	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)
)

// =============================================================================
// LINE EDITOR
// =============================================================================

// LineReader reads one line of input. liner.ErrPromptAborted and io.EOF
// both end the session.
type LineReader interface {
	Prompt(prompt string) (string, error)
}

// LineEditor provides input history and line editing for the plain REPL.
type LineEditor struct {
	line        *liner.State
	historyFile string
}

// NewLineEditor creates a line editor and loads saved input history.
func NewLineEditor() *LineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	e := &LineEditor{
		line:        line,
		historyFile: filepath.Join(configDir, "input_history"),
	}

	if f, err := os.Open(e.historyFile); err == nil {
		e.line.ReadHistory(f)
		f.Close()
	}
	return e
}

// Prompt reads a line. Non-blank input is added to the history.
func (e *LineEditor) Prompt(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history owner-only and restores the terminal.
func (e *LineEditor) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			e.line.WriteHistory(f)
			f.Close()
		}
	}
	e.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// REPLConfig configures the plain REPL.
type REPLConfig struct {
	// Markdown renders assistant replies with glamour once complete.
	// Without it replies are printed raw as they stream.
	Markdown bool
	// Style is the glamour standard style ("dark" or "light").
	Style string
	// Width is the markdown wrap width.
	Width int
	// Interrupts delivers Ctrl+C while a reply is streaming.
	Interrupts <-chan os.Signal
	// LoadHistory prints the stored conversation before the first prompt.
	LoadHistory bool
}

// REPL is a line-oriented chat front end over the same session state as
// the full-screen view. Ctrl+C stops a reply in progress; at the prompt it
// ends the session.
type REPL struct {
	state      *session.State
	client     session.Backend
	in         LineReader
	out        io.Writer
	renderer   *glamour.TermRenderer
	interrupts <-chan os.Signal
	history    bool
}

// NewREPL creates a REPL reading from in and writing to out.
func NewREPL(client session.Backend, in LineReader, out io.Writer, cfg REPLConfig) *REPL {
	r := &REPL{
		state:      session.New(),
		client:     client,
		in:         in,
		out:        out,
		interrupts: cfg.Interrupts,
		history:    cfg.LoadHistory,
	}
	if cfg.Markdown {
		width := cfg.Width
		if width <= 0 {
			width = DefaultTerminalWidth
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(cfg.Style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			logging.L.Warn("markdown renderer unavailable", "error", err)
		} else {
			r.renderer = renderer
		}
	}
	return r
}

// State returns the session state behind the REPL.
func (r *REPL) State() *session.State {
	return r.state
}

// Run loads history and reads prompts until /quit, EOF or Ctrl+C.
func (r *REPL) Run(ctx context.Context) error {
	if r.history {
		// A failure is logged by the session and leaves the conversation empty.
		_ = r.state.LoadHistory(ctx, r.client)
		if r.state.HistoryLoaded() {
			r.printHistory()
		}
	}
	fmt.Fprintln(r.out, styles.RenderInfo("Type /help for commands."))

	for {
		input, err := r.in.Prompt(promptStyle.Render("> "))
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(r.out)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "/") {
			if !r.handleCommand(trimmed) {
				return nil
			}
			continue
		}

		if err := r.Send(ctx, input); err != nil {
			fmt.Fprintln(r.out, styles.RenderError(err.Error()))
		}
	}
}

// handleCommand runs a slash command. It returns false to end the session.
func (r *REPL) handleCommand(input string) bool {
	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/q", "/exit":
		return false
	case "/help", "/h":
		r.printHelp()
	case "/history":
		r.printHistory()
	case "/export":
		r.exportTranscript(fields[1:])
	default:
		fmt.Fprintln(r.out, styles.RenderError("Unknown command "+input+". Type /help."))
	}
	return true
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, "Commands:")
	fmt.Fprintf(r.out, "  %s  Show this help\n", commandStyle.Render("/help    "))
	fmt.Fprintf(r.out, "  %s  Print the conversation\n", commandStyle.Render("/history "))
	fmt.Fprintf(r.out, "  %s  Save the conversation: /export [md|json] [path]\n", commandStyle.Render("/export  "))
	fmt.Fprintf(r.out, "  %s  Exit\n", commandStyle.Render("/quit    "))
	fmt.Fprintln(r.out, "  Ctrl+C     Stop the reply in progress, or exit at the prompt")
}

// exportTranscript handles "/export [md|json] [path]".
func (r *REPL) exportTranscript(args []string) {
	format, path := "md", ""
	if len(args) > 0 {
		format = args[0]
	}
	if len(args) > 1 {
		path = args[1]
	}

	exporter, err := export.ForFormat(format, nil)
	if err != nil {
		fmt.Fprintln(r.out, styles.RenderError(err.Error()))
		return
	}
	t := export.NewTranscript(r.state.SessionID(), r.state.Messages())
	written, err := export.ToFile(t, exporter, path)
	if err != nil {
		fmt.Fprintln(r.out, styles.RenderError("Export failed: "+err.Error()))
		return
	}
	logging.L.Info("conversation exported", "path", written, "messages", len(t.Messages))
	fmt.Fprintln(r.out, styles.RenderInfo("Saved "+written))
}

// =============================================================================
// SENDING
// =============================================================================

// Send submits text and prints the reply. It returns once the reply has
// ended, failed or been stopped by an interrupt.
func (r *REPL) Send(ctx context.Context, text string) error {
	gen, err := r.state.Begin(ctx, text)
	if errors.Is(err, session.ErrEmptyInput) {
		return nil
	}
	if err != nil {
		return err
	}

	// A Ctrl+C pressed at the prompt must not stop this reply.
	r.drainInterrupts()

	var (
		reply     strings.Builder
		streamErr error
	)
	done := make(chan struct{})

	wg := conc.NewWaitGroup()
	wg.Go(func() {
		defer close(done)
		streamErr = r.consume(gen, &reply)
	})
	wg.Go(func() {
		r.watchInterrupts(ctx, done)
	})
	wg.Wait()

	finished := r.state.Finish(gen.ID, streamErr)

	if r.renderer != nil && reply.Len() > 0 {
		fmt.Fprint(r.out, r.renderMarkdown(reply.String()))
	}
	fmt.Fprintln(r.out)

	if finished && streamErr != nil && !backend.IsCancelled(streamErr) {
		fmt.Fprintln(r.out, styles.RenderError(session.ErrorPrefix+streamErr.Error()))
		if backend.IsConnection(streamErr) {
			fmt.Fprintln(r.out, styles.RenderInfo("Is the assistant service running? Set its address with --url or CALMISTRY_URL."))
		}
	}
	return nil
}

// consume reads the reply into the session and, without markdown, onto out.
func (r *REPL) consume(gen *session.Generation, reply *strings.Builder) error {
	stream, err := r.client.Infer(gen.Context(), gen.Request)
	if err != nil {
		return err
	}
	defer stream.Close()

	r.state.AdoptRequestID(gen.ID, stream.RequestID())

	// A stop cancels the generation context, which ends Process.
	return stream.Process(gen.Context(), func(chunk backend.StreamChunk) {
		if !r.state.AppendChunk(gen.ID, chunk.Content) {
			return
		}
		reply.WriteString(chunk.Content)
		if r.renderer == nil {
			fmt.Fprint(r.out, chunk.Content)
		}
	})
}

// watchInterrupts stops the generation on Ctrl+C and sends the remote
// cancellation. It returns when done closes.
func (r *REPL) watchInterrupts(ctx context.Context, done <-chan struct{}) {
	if r.interrupts == nil {
		return
	}
	select {
	case <-done:
	case <-r.interrupts:
		requestID := r.state.Stop()
		fmt.Fprintln(r.out)
		fmt.Fprint(r.out, styles.RenderInfo("Stopped."))
		session.CancelRemote(ctx, r.client, requestID)
	}
}

func (r *REPL) drainInterrupts() {
	for {
		select {
		case <-r.interrupts:
		default:
			return
		}
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *REPL) printHistory() {
	for _, msg := range r.state.Messages() {
		r.printMessage(msg)
	}
}

func (r *REPL) printMessage(msg *model.Message) {
	if msg.Role.IsUser() {
		fmt.Fprintln(r.out, userLabelStyle.Render(msg.Role.DisplayName()+":"))
		fmt.Fprintln(r.out, ansi.Strip(msg.Content))
		fmt.Fprintln(r.out)
		return
	}

	fmt.Fprintln(r.out, assistantLabelStyle.Render(msg.Role.DisplayName()+":"))
	if msg.IsError {
		fmt.Fprintln(r.out, styles.RenderError(msg.Content))
	} else if r.renderer != nil {
		fmt.Fprint(r.out, r.renderMarkdown(msg.GetDisplayContent()))
	} else {
		fmt.Fprintln(r.out, msg.GetDisplayContent())
	}
	fmt.Fprintln(r.out)
}

// renderMarkdown falls back to the raw text when rendering fails.
func (r *REPL) renderMarkdown(content string) string {
	rendered, err := r.renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return rendered
}
