package funnel

import (
	"context"
	"time"
)

// RevealConfig controls the character-by-character summary reveal.
type RevealConfig struct {
	CharDelay time.Duration
	Dwell     time.Duration
}

// DefaultRevealConfig reveals one character every 30ms and holds the full text for a second.
var DefaultRevealConfig = RevealConfig{
	CharDelay: 30 * time.Millisecond,
	Dwell:     time.Second,
}

// Reveal is a running reveal task. It is owned by the session that started it.
type Reveal struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// StartReveal reveals text one rune at a time, calling onProgress with the
// revealed prefix, then waits cfg.Dwell and calls onComplete. No callback runs
// after ctx is cancelled or Cancel is called.
func StartReveal(ctx context.Context, text string, cfg RevealConfig, onProgress func(string), onComplete func()) *Reveal {
	ctx, cancel := context.WithCancel(ctx)
	r := &Reveal{ctx: ctx, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(r.done)
		defer cancel()

		runes := []rune(text)
		for i := range runes {
			if !r.sleep(cfg.CharDelay) {
				return
			}
			if onProgress != nil {
				onProgress(string(runes[:i+1]))
			}
		}
		if !r.sleep(cfg.Dwell) {
			return
		}
		if onComplete != nil {
			onComplete()
		}
	}()

	return r
}

// sleep waits d and reports whether the task is still live.
func (r *Reveal) sleep(d time.Duration) bool {
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-r.ctx.Done():
			return false
		case <-t.C:
		}
	}
	return r.ctx.Err() == nil
}

// Cancel stops the reveal. It does not wait for the goroutine to exit.
func (r *Reveal) Cancel() {
	r.cancel()
}

// Done is closed when the reveal goroutine has exited.
func (r *Reveal) Done() <-chan struct{} {
	return r.done
}
