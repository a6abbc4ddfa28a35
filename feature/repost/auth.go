package repost

import (
	"context"

	"go.uber.org/zap"
)

// WatchAuth subscribes the engine to the session auth stream. Only
// transitions are acted on: losing authentication clears the cache; gaining
// it resets initialization so the next operation re-seeds from storage (no
// eager re-sync). The subscription ends when the channel closes or the
// engine is closed.
func (e *Engine) WatchAuth(ch <-chan bool) {
	go func() {
		last := e.Authenticated()
		for {
			select {
			case <-e.done:
				return
			case authenticated, ok := <-ch:
				if !ok {
					return
				}
				if authenticated == last {
					continue
				}
				last = authenticated
				e.onAuthTransition(authenticated)
			}
		}
	}()
}

func (e *Engine) onAuthTransition(authenticated bool) {
	e.mu.Lock()
	e.authenticated = authenticated
	e.mu.Unlock()

	if !authenticated {
		if err := e.ClearCache(context.Background()); err != nil {
			e.logger.Warn("cache clear on logout failed", zap.Error(err))
		}
		return
	}

	e.mu.Lock()
	e.initialized = false
	e.mu.Unlock()
}
