// Package registry implements the Adapter Registry described in spec.md
// §4.8: a protocol-keyed map of types.SourceWrapper implementations plus a
// single types.SinkWrapper and the list of registered state listeners. The
// player core consults the registry to resolve "file://" or "http://" to a
// concrete source adapter without ever importing an adapter package
// itself, mirroring how the teacher's decoders.NewDecoder dispatches by
// file extension without the caller knowing which decoder package backs
// which extension.
package registry

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/drgolem/liteplayer/pkg/types"
)

// Registry holds the source/sink adapters and state listeners a Player
// consults. The zero value is usable.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]types.SourceWrapper
	// order records SourceWrappers in registration order, independent of
	// sources' map iteration order, so SourceFor can fall back to "the
	// first registered wrapper" for a scheme-less URL as spec.md requires.
	order     []types.SourceWrapper
	sink      types.SinkWrapper
	listeners []types.Listener
}

func New() *Registry {
	return &Registry{sources: make(map[string]types.SourceWrapper)}
}

// RegisterSourceWrapper installs w for the URL protocol it reports via
// URLProtocol(), e.g. "file" or "http". Replaces any prior registration
// for that protocol, preserving that protocol's original registration-order
// position.
func (r *Registry) RegisterSourceWrapper(w types.SourceWrapper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	protocol := w.URLProtocol()
	if _, exists := r.sources[protocol]; exists {
		for i, prev := range r.order {
			if prev.URLProtocol() == protocol {
				r.order[i] = w
				break
			}
		}
	} else {
		r.order = append(r.order, w)
	}
	r.sources[protocol] = w
}

// RegisterSinkWrapper installs the single active sink.
func (r *Registry) RegisterSinkWrapper(w types.SinkWrapper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = w
}

// RegisterStateListener appends l to the list of listeners notified on
// every Player state transition.
func (r *Registry) RegisterStateListener(l types.Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Listeners returns a snapshot of the registered listeners.
func (r *Registry) Listeners() []types.Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Listener, len(r.listeners))
	copy(out, r.listeners)
	return out
}

// Sink returns the registered sink, or an error if none was registered.
func (r *Registry) Sink() (types.SinkWrapper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.sink == nil {
		return nil, types.NewError(types.ErrInvalidState, fmt.Errorf("no sink wrapper registered"))
	}
	return r.sink, nil
}

// SourceFor resolves rawURL to its registered types.SourceWrapper. A URL
// carrying a scheme ("file://", "http://", ...) selects the wrapper
// registered for that scheme. A scheme-less URL names a bare local path
// rather than a transport, so it resolves to the "file" wrapper if one is
// registered, otherwise to the first wrapper ever registered, in
// registration order; the path's extension plays no part in the choice.
func (r *Registry) SourceFor(rawURL string) (types.SourceWrapper, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidArgument, fmt.Errorf("parse url %q: %w", rawURL, err))
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if u.Scheme != "" {
		w, ok := r.sources[u.Scheme]
		if !ok {
			return nil, types.NewError(types.ErrInvalidArgument, fmt.Errorf("no source wrapper registered for protocol %q", u.Scheme))
		}
		return w, nil
	}

	if w, ok := r.sources["file"]; ok {
		return w, nil
	}
	if len(r.order) > 0 {
		return r.order[0], nil
	}
	return nil, types.NewError(types.ErrInvalidArgument, fmt.Errorf("no source wrapper registered for %q", rawURL))
}
