package mqtt

// pending is a message held back while the broker is unreachable.
type pending struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox keeps the most recent telemetry and system messages published while
// offline, evicting the oldest once full. Callers hold RealClient.mu.
type outbox struct {
	msgs    []pending
	start   int // index of the oldest message
	n       int
	dropped bool // a message was evicted since the last flush
}

func newOutbox(capacity int) *outbox {
	return &outbox{msgs: make([]pending, max(capacity, 1))}
}

// add queues m. It reports true when m is the first to evict an older message
// since the last flush, so the caller can log one warning per outage.
func (o *outbox) add(m pending) bool {
	size := len(o.msgs)
	if o.n < size {
		o.msgs[(o.start+o.n)%size] = m
		o.n++
		return false
	}
	o.msgs[o.start] = m
	o.start = (o.start + 1) % size
	first := !o.dropped
	o.dropped = true
	return first
}

// flush returns the queued messages oldest first and empties the outbox.
func (o *outbox) flush() []pending {
	if o.n == 0 {
		return nil
	}
	out := make([]pending, 0, o.n)
	for i := 0; i < o.n; i++ {
		out = append(out, o.msgs[(o.start+i)%len(o.msgs)])
	}
	o.start, o.n, o.dropped = 0, 0, false
	return out
}

func (o *outbox) size() int {
	return o.n
}
