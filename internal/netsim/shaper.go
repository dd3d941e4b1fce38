package netsim

import (
	"math/rand"
	"sync"
	"time"
)

// frame is a single shaped payload in flight from one endpoint to
// another.
type frame struct {
	payload []byte
	sentAt  time.Time
}

// delivery is a frame that has cleared the shaper and is ready for the
// receiving side to observe.
type delivery struct {
	payload []byte
}

// shaper applies a Profile to a single directed link: every frame
// enqueued via send is held for at least profile.OneWayDelay, consumes
// profile.BandwidthBps of the link's capacity, and is independently
// subject to loss. The link's available-at watermark only ever advances,
// which is what keeps frames delivered in FIFO order even though delay
// and bandwidth cost are computed per frame.
type shaper struct {
	profile Profile

	mu          sync.Mutex
	availableAt time.Time

	in   chan frame
	out  chan delivery
	stop chan struct{}
	once sync.Once
	rng  *rand.Rand
}

func newShaper(profile Profile) *shaper {
	s := &shaper{
		profile:     profile,
		availableAt: time.Now(),
		in:          make(chan frame, 64),
		out:         make(chan delivery, 64),
		stop:        make(chan struct{}),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	go s.run()
	return s
}

// bandwidthDelay returns how long transmitting n bytes occupies the link,
// given the profile's bandwidth cap. Zero when unlimited.
func (s *shaper) bandwidthDelay(n int) time.Duration {
	if s.profile.BandwidthBps <= 0 {
		return 0
	}
	seconds := float64(n) / float64(s.profile.BandwidthBps)
	return time.Duration(seconds * float64(time.Second))
}

// send enqueues payload for shaped delivery. It returns once the frame
// has been accepted into the shaper's queue, not once delivered. false is
// returned if the link has already been closed.
func (s *shaper) send(payload []byte) bool {
	select {
	case s.in <- frame{payload: payload, sentAt: time.Now()}:
		return true
	case <-s.stop:
		return false
	}
}

// run is the link's single scheduling goroutine. Processing frames one
// at a time off an ordered channel is what gives the shaper its FIFO
// guarantee: availableAt only grows, so deliverAt is non-decreasing
// across successive frames.
func (s *shaper) run() {
	defer close(s.out)
	for {
		var f frame
		select {
		case f = <-s.in:
		case <-s.stop:
			return
		}

		s.mu.Lock()
		start := f.sentAt
		if s.availableAt.After(start) {
			start = s.availableAt
		}
		bw := s.bandwidthDelay(len(f.payload))
		s.availableAt = start.Add(bw)
		deliverAt := start.Add(bw).Add(s.profile.OneWayDelay)
		s.mu.Unlock()

		if s.profile.LossProbability > 0 && s.rng.Float64() < s.profile.LossProbability {
			continue
		}

		if d := time.Until(deliverAt); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-timer.C:
			case <-s.stop:
				timer.Stop()
				return
			}
		}

		select {
		case s.out <- delivery{payload: f.payload}:
		case <-s.stop:
			return
		}
	}
}

// close tears down the scheduling goroutine. Idempotent.
func (s *shaper) close() {
	s.once.Do(func() { close(s.stop) })
}
