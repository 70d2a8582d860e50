// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/calmistry/assistant-tui/internal/logging"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// markdownRenderer renders assistant replies through glamour. Renderers are
// built per wrap width and finished messages are memoized by ID, so a
// streaming tick only re-renders the message that is still growing.
type markdownRenderer struct {
	mu        sync.Mutex
	style     string
	renderers map[int]*glamour.TermRenderer
	cache     map[string]renderedMessage
}

type renderedMessage struct {
	width   int
	content string
	out     string
}

func newMarkdownRenderer(style string) *markdownRenderer {
	return &markdownRenderer{
		style:     style,
		renderers: make(map[int]*glamour.TermRenderer),
		cache:     make(map[string]renderedMessage),
	}
}

// SetStyle switches the glamour standard style and drops every cached result.
func (r *markdownRenderer) SetStyle(style string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if style == r.style {
		return
	}
	r.style = style
	r.renderers = make(map[int]*glamour.TermRenderer)
	r.cache = make(map[string]renderedMessage)
}

// Render renders content wrapped at width. id keys the memo; an empty id
// skips it. On a renderer failure the raw text is returned.
func (r *markdownRenderer) Render(id, content string, width int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id != "" {
		if hit, ok := r.cache[id]; ok && hit.width == width && hit.content == content {
			return hit.out
		}
	}

	tr, err := r.rendererLocked(width)
	if err != nil {
		logging.L.Warn("markdown renderer unavailable", "width", width, "error", err)
		return content
	}
	out, err := tr.Render(content)
	if err != nil {
		logging.L.Warn("markdown render failed", "error", err)
		return content
	}
	out = strings.Trim(out, "\n")

	if id != "" {
		r.cache[id] = renderedMessage{width: width, content: content, out: out}
	}
	return out
}

// Forget drops memoized output for ids not in keep.
func (r *markdownRenderer) Forget(keep map[string]struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.cache {
		if _, ok := keep[id]; !ok {
			delete(r.cache, id)
		}
	}
}

func (r *markdownRenderer) rendererLocked(width int) (*glamour.TermRenderer, error) {
	if tr, ok := r.renderers[width]; ok {
		return tr, nil
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, err
	}
	r.renderers[width] = tr
	return tr, nil
}
