package app

import "sync"

// projectLocks hands out one mutex per project id so writers to the same
// project serialize while different projects run concurrently.
type projectLocks struct {
	mu    sync.Mutex
	locks map[string]*projectLock
}

type projectLock struct {
	mu   sync.Mutex
	refs int
}

func newProjectLocks() *projectLocks {
	return &projectLocks{locks: map[string]*projectLock{}}
}

// lock blocks until the project's mutex is held and returns its release func.
func (p *projectLocks) lock(projectID string) func() {
	p.mu.Lock()
	l, ok := p.locks[projectID]
	if !ok {
		l = &projectLock{}
		p.locks[projectID] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, projectID)
		}
		p.mu.Unlock()
	}
}
