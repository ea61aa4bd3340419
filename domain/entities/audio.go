package entities

import "sync"

// AudioClips holds synthesized speech per message identity for one session.
// Entries are never evicted; Reset drops them all.
type AudioClips struct {
	mu    sync.RWMutex
	clips map[MessageID][]byte
}

func NewAudioClips() *AudioClips {
	return &AudioClips{clips: make(map[MessageID][]byte)}
}

// Get returns the clip stored for id
func (a *AudioClips) Get(id MessageID) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	clip, ok := a.clips[id]
	return clip, ok
}

// Put stores a clip for id. Empty clips are ignored.
func (a *AudioClips) Put(id MessageID, clip []byte) {
	if len(clip) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clips[id] = clip
}

func (a *AudioClips) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.clips)
}

// Reset drops every stored clip
func (a *AudioClips) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clips = make(map[MessageID][]byte)
}
