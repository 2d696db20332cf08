package tasks

import (
	"fmt"
	"sync"

	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/shared"
)

type pendingKey struct {
	collection models.Collection
	songID     models.ID
}

// Pending tracks in-flight mutations per (collection, song) pair.
//
// The zero value is ready to use.
type Pending struct {
	mu       sync.Mutex
	inflight map[pendingKey]struct{}
}

// Acquire marks the pair as pending. The returned release func must be called once the mutation settles.
//
// Fails with [shared.ErrMutationPending] when the pair is already pending.
func (p *Pending) Acquire(c models.Collection, songID models.ID) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inflight == nil {
		p.inflight = make(map[pendingKey]struct{})
	}

	k := pendingKey{collection: c, songID: songID}
	if _, busy := p.inflight[k]; busy {
		return nil, fmt.Errorf("%w: %s %s", shared.ErrMutationPending, c, songID)
	}
	p.inflight[k] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.inflight, k)
			p.mu.Unlock()
		})
	}, nil
}

// IsPending reports whether a mutation for the pair is in flight.
func (p *Pending) IsPending(c models.Collection, songID models.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inflight[pendingKey{collection: c, songID: songID}]
	return ok
}
