// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
)

// =============================================================================
// CANCEL FUNCTION MANAGEMENT (THREAD-SAFE)
// =============================================================================

// cancelManager owns the context of the view's background work (the history
// load and any pending cancellation requests). It must be held by pointer so
// the copies Bubble Tea makes of Model share it.
type cancelManager struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

func newCancelManager() *cancelManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &cancelManager{ctx: ctx, cancel: cancel}
}

// context returns the shared background context.
func (cm *cancelManager) context() context.Context {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.ctx
}

// clear cancels the shared context. Safe to call more than once.
func (cm *cancelManager) clear() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancel != nil {
		cm.cancel()
		cm.cancel = nil
	}
}
