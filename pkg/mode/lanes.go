package mode

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// lanes is a keyed mutex: one lane per user with at least one holder or
// waiter. Events of one user queue on the lane in arrival order while
// different users never contend.
type lanes struct {
	shards []*laneShard
}

type laneShard struct {
	mu    sync.Mutex
	lanes map[string]*lane
}

type lane struct {
	mu   sync.Mutex
	refs int
}

func newLanes(shards int) *lanes {
	if shards < 1 {
		shards = 1
	}
	l := &lanes{shards: make([]*laneShard, shards)}
	for i := range l.shards {
		l.shards[i] = &laneShard{lanes: make(map[string]*lane)}
	}
	return l
}

func (l *lanes) shardFor(key string) *laneShard {
	return l.shards[xxhash.Sum64String(key)%uint64(len(l.shards))]
}

// acquire blocks until the lane for key is free and returns its release func.
func (l *lanes) acquire(key string) func() {
	sh := l.shardFor(key)
	sh.mu.Lock()
	ln, ok := sh.lanes[key]
	if !ok {
		ln = &lane{}
		sh.lanes[key] = ln
	}
	ln.refs++
	sh.mu.Unlock()

	ln.mu.Lock()
	return func() { l.release(sh, key, ln) }
}

// tryAcquire takes the lane only when nobody holds or waits for it.
func (l *lanes) tryAcquire(key string) (func(), bool) {
	sh := l.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, busy := sh.lanes[key]; busy {
		return nil, false
	}
	ln := &lane{refs: 1}
	ln.mu.Lock()
	sh.lanes[key] = ln
	return func() { l.release(sh, key, ln) }, true
}

func (l *lanes) release(sh *laneShard, key string, ln *lane) {
	ln.mu.Unlock()
	sh.mu.Lock()
	ln.refs--
	if ln.refs == 0 {
		delete(sh.lanes, key)
	}
	sh.mu.Unlock()
}

func (l *lanes) len() int {
	n := 0
	for _, sh := range l.shards {
		sh.mu.Lock()
		n += len(sh.lanes)
		sh.mu.Unlock()
	}
	return n
}
