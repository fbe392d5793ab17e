package staging

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/vibetrack/internal/metrics"
)

const handlePrefix = "blob:"

// Handle is an opaque URI-like reference to a staged image preview
type Handle string

// ID returns the handle without its scheme
func (h Handle) ID() string {
	return strings.TrimPrefix(string(h), handlePrefix)
}

// HandleFromID rebuilds a handle from the value returned by ID
func HandleFromID(id string) Handle {
	return Handle(handlePrefix + id)
}

type preview struct {
	data     []byte
	mimeType string
}

// Previews owns every live preview handle. It is safe for concurrent use
// so preview bytes can be served while a session is being modified.
type Previews struct {
	mu      sync.RWMutex
	entries map[Handle]preview
}

// NewPreviews creates an empty registry
func NewPreviews() *Previews {
	return &Previews{entries: make(map[Handle]preview)}
}

// Acquire allocates a new handle for data
func (p *Previews) Acquire(data []byte, mimeType string) Handle {
	h := HandleFromID(uuid.New().String())

	p.mu.Lock()
	p.entries[h] = preview{data: data, mimeType: mimeType}
	p.mu.Unlock()

	metrics.PreviewHandles.Inc()
	return h
}

// Release frees h. It reports false if h was not live, so a handle is
// released at most once.
func (p *Previews) Release(h Handle) bool {
	p.mu.Lock()
	_, ok := p.entries[h]
	delete(p.entries, h)
	p.mu.Unlock()

	if ok {
		metrics.PreviewHandles.Dec()
	}
	return ok
}

// Open returns the bytes behind a live handle
func (p *Previews) Open(h Handle) ([]byte, string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[h]
	return e.data, e.mimeType, ok
}

// Live returns the number of unreleased handles
func (p *Previews) Live() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}
