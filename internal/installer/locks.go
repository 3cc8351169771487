package installer

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBusy is returned when another operation on the same package is running.
var ErrBusy = errors.New("INS_BUSY: another operation on this skill is in progress")

type lockTable struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func (l *lockTable) acquire(id string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy == nil {
		l.busy = map[string]struct{}{}
	}
	if _, ok := l.busy[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, id)
	}
	l.busy[id] = struct{}{}
	return func() {
		l.mu.Lock()
		delete(l.busy, id)
		l.mu.Unlock()
	}, nil
}
