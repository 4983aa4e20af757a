package service

import "sync"

// completionHub wakes goroutines waiting on a post whenever one of its
// asset jobs reaches a terminal state.
type completionHub struct {
	mu   sync.Mutex
	subs map[int64]map[chan struct{}]struct{}
}

func newCompletionHub() *completionHub {
	return &completionHub{subs: make(map[int64]map[chan struct{}]struct{})}
}

func (h *completionHub) subscribe(postID int64) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	if h.subs[postID] == nil {
		h.subs[postID] = make(map[chan struct{}]struct{})
	}
	h.subs[postID][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs[postID], ch)
		if len(h.subs[postID]) == 0 {
			delete(h.subs, postID)
		}
		h.mu.Unlock()
	}
}

func (h *completionHub) notify(postID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[postID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
