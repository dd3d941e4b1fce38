package netsim

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/shardmesh/lagrange/pkg/party"
)

// ErrPeerUnreachable is returned by Send when the link to the peer has
// already been closed.
var ErrPeerUnreachable = errors.New("netsim: peer unreachable")

// ErrBusClosed is returned by Recv once the bus has been shut down, and
// unblocks any call already waiting in Recv.
var ErrBusClosed = errors.New("netsim: bus closed")

// Inbound is a single message delivered to a participant's mailbox.
type Inbound struct {
	From    party.ID
	Payload []byte
}

// Bus is a point-to-point async message bus for a fixed, pre-known set of
// participant IDs. Every ordered pair (from, to) of distinct IDs gets its
// own shaper, so link characteristics and FIFO ordering are per-pair.
type Bus struct {
	ids     []party.ID
	links   map[party.ID]map[party.ID]*shaper
	mailbox map[party.ID]chan Inbound

	closed    atomic.Bool
	closeOnce sync.Once
	closedCh  chan struct{}

	bytesSent map[party.ID]*atomic.Uint64
	bytesRecv map[party.ID]*atomic.Uint64

	wg sync.WaitGroup
}

// NewBus builds a Bus wiring every ordered pair of ids through a shaper
// configured with profile, and starts the per-link forwarding goroutines
// that move delivered frames into the recipient's mailbox.
func NewBus(ids []party.ID, profile Profile) *Bus {
	b := &Bus{
		ids:       ids,
		links:     make(map[party.ID]map[party.ID]*shaper, len(ids)),
		mailbox:   make(map[party.ID]chan Inbound, len(ids)),
		closedCh:  make(chan struct{}),
		bytesSent: make(map[party.ID]*atomic.Uint64, len(ids)),
		bytesRecv: make(map[party.ID]*atomic.Uint64, len(ids)),
	}

	for _, id := range ids {
		b.mailbox[id] = make(chan Inbound, 4*len(ids))
		b.bytesSent[id] = &atomic.Uint64{}
		b.bytesRecv[id] = &atomic.Uint64{}
	}

	for _, from := range ids {
		b.links[from] = make(map[party.ID]*shaper, len(ids)-1)
		for _, to := range ids {
			if from == to {
				continue
			}
			link := newShaper(profile)
			b.links[from][to] = link
			b.wg.Add(1)
			go b.forward(from, to, link)
		}
	}

	return b
}

// forward drains a single link's delivered frames into the recipient's
// mailbox until the link is closed.
func (b *Bus) forward(from, to party.ID, link *shaper) {
	defer b.wg.Done()
	for d := range link.out {
		b.bytesRecv[to].Add(uint64(len(d.payload)))
		select {
		case b.mailbox[to] <- Inbound{From: from, Payload: d.payload}:
		case <-b.closedCh:
			return
		}
	}
}

// Send enqueues payload onto the shaped link from -> to. It returns once
// the local send buffer has accepted the bytes, not once delivered.
func (b *Bus) Send(from, to party.ID, payload []byte) error {
	if b.closed.Load() {
		return ErrPeerUnreachable
	}
	link, ok := b.links[from][to]
	if !ok {
		return ErrPeerUnreachable
	}
	b.bytesSent[from].Add(uint64(len(payload)))
	if !link.send(payload) {
		return ErrPeerUnreachable
	}
	return nil
}

// Broadcast sends payload from the given sender to every other
// participant. Each recipient link's delay is applied independently.
func (b *Bus) Broadcast(from party.ID, payload []byte) error {
	for _, to := range b.ids {
		if to == from {
			continue
		}
		if err := b.Send(from, to, payload); err != nil {
			return err
		}
	}
	return nil
}

// Recv blocks until a message arrives for self or the bus is shut down.
func (b *Bus) Recv(self party.ID) (party.ID, []byte, error) {
	select {
	case m := <-b.mailbox[self]:
		return m.From, m.Payload, nil
	case <-b.closedCh:
		return 0, nil, ErrBusClosed
	}
}

// Close is idempotent; it unblocks any pending Recv with ErrBusClosed and
// tears down every link's scheduling goroutine.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		close(b.closedCh)
		for _, peers := range b.links {
			for _, link := range peers {
				link.close()
			}
		}
	})
}

// BytesSent returns the cumulative bytes id has sent on this bus.
func (b *Bus) BytesSent(id party.ID) uint64 { return b.bytesSent[id].Load() }

// BytesRecv returns the cumulative bytes id has received on this bus.
func (b *Bus) BytesRecv(id party.ID) uint64 { return b.bytesRecv[id].Load() }
