package stream

import "sync"

// maxTotalStreams caps concurrent streams across all clients so a flood of
// distinct IPs cannot exhaust the server.
const maxTotalStreams = 1000

// streamLimiter enforces a per-IP cap and a global cap on concurrent
// streaming connections.
type streamLimiter struct {
	mu    sync.Mutex
	perIP map[string]int
	total int
	max   int
}

func newStreamLimiter(maxPerIP int) *streamLimiter {
	if maxPerIP <= 0 {
		maxPerIP = 10
	}
	return &streamLimiter{
		perIP: make(map[string]int),
		max:   maxPerIP,
	}
}

// acquire reserves a stream slot for ip. It returns false when either the
// per-IP or the global limit is already reached.
func (l *streamLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= maxTotalStreams {
		return false
	}
	if l.perIP[ip] >= l.max {
		return false
	}

	l.perIP[ip]++
	l.total++
	return true
}

// release returns a previously acquired slot.
func (l *streamLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := l.perIP[ip]; n > 1 {
		l.perIP[ip] = n - 1
	} else {
		delete(l.perIP, ip)
	}
	if l.total > 0 {
		l.total--
	}
}

// count reports the current number of streams held by ip.
func (l *streamLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}
