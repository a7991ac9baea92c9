package rwlock

// N-way fair: while a writer is waiting, at most n readers
// are admitted per window - the stretch since the lock was last released by
// a writer. readersPassed counts admissions in the current window and is
// reset to zero whenever a writer finishes, capping reader admission so a
// waiting writer is guaranteed a turn within n reader admissions instead of
// being starved indefinitely (unlike reader-priority) or excluded outright
// whenever any writer queues (unlike writer-priority).

func (l *Lock) nwRLock() {
	l.mu.Lock()

	l.nw.readersWaiting++
	for l.nw.readersPassed >= l.n && l.nw.writersWaiting > 0 {
		l.nw.readerCond.Wait()
	}
	l.nw.readersWaiting--

	if l.nw.readersPassed < l.n {
		l.nw.readersPassed++
	}

	l.readersHolding++
	if l.readersHolding == 1 {
		// Held across the blocking take deliberately - see reader_priority.go.
		l.takeGate()
	}

	l.mu.Unlock()
}

func (l *Lock) nwRUnlock() {
	l.mu.Lock()

	l.readersHolding--
	if l.readersHolding == 0 {
		l.releaseGate()
	}

	switch {
	case l.nw.writersWaiting == 0:
		l.nw.readerCond.Broadcast()
	case l.nw.readersPassed >= l.n || l.nw.readersWaiting == 0:
		l.nw.writerCond.Signal()
	default:
		remaining := l.n - l.nw.readersPassed
		if l.nw.readersWaiting <= remaining {
			l.nw.readerCond.Broadcast()
		} else {
			for i := uint(0); i < remaining; i++ {
				l.nw.readerCond.Signal()
			}
		}
	}

	l.mu.Unlock()
}

func (l *Lock) nwLock() {
	l.mu.Lock()

	l.nw.writersWaiting++
	for l.readersHolding > 0 || (l.nw.readersPassed < l.n && l.nw.readersWaiting > 0) {
		l.nw.writerCond.Wait()
	}

	l.mu.Unlock()

	l.takeGate()
}

func (l *Lock) nwUnlock() {
	l.releaseGate()

	l.mu.Lock()
	l.nw.writersWaiting--
	l.nw.readersPassed = 0

	if l.nw.readersWaiting > 0 {
		if l.nw.readersWaiting <= l.n {
			l.nw.readerCond.Broadcast()
		} else {
			for i := uint(0); i < l.n; i++ {
				l.nw.readerCond.Signal()
			}
		}
	} else {
		l.nw.writerCond.Signal()
	}
	l.mu.Unlock()
}
