package engine

import (
	"errors"
	"fmt"

	"github.com/shardmesh/lagrange/internal/metrics"
	"github.com/shardmesh/lagrange/internal/wire"
	"github.com/shardmesh/lagrange/pkg/group"
	"github.com/shardmesh/lagrange/pkg/party"
)

// ErrProtocolViolation covers a wrong round, a duplicate sender, or a
// malformed frame observed while exchanging shares or partials.
var ErrProtocolViolation = errors.New("engine: protocol violation")

// Bus is the subset of netsim.Bus a Participant needs; declared as an
// interface so a participant can be driven by a test double.
type Bus interface {
	Send(from, to party.ID, payload []byte) error
	Broadcast(from party.ID, payload []byte) error
	Recv(self party.ID) (party.ID, []byte, error)
}

// Participant runs one party's side of the 3-round additive-sharing
// Lagrange interpolation protocol. Its behavior is not parameterized by
// any pluggable protocol descriptor: there is exactly one protocol in
// scope, so a single concrete type drives all three rounds directly
// rather than through a round.Session/StartFunc indirection.
type Participant struct {
	Self   party.ID
	Peers  []party.ID                 // all participant IDs, including Self
	XTable map[party.ID]*group.Scalar // every participant's public abscissa
	Point  party.PrivatePoint
	Params *group.Params
	Bus    Bus
	Sink   *metrics.Sink
	Digest string

	arith      *group.Arith
	lambdas    map[party.ID]*group.Scalar // λ_j for every participant j, including self
	state      State
	ownShares  map[party.ID]*group.Scalar // r_{self,j} for every peer j, including self
	received   map[party.ID]*group.Scalar // shares received from every peer
	partial    *group.Scalar
	partials   map[party.ID]*group.Scalar
	transcript *wire.Transcript // nil unless transcript capture is enabled
}

// New builds a Participant ready to Run. captureTranscript gates whether
// the participant pays to record every frame it sends; when false,
// Transcript always returns nil.
func New(self party.ID, peers []party.ID, xTable map[party.ID]*group.Scalar, point party.PrivatePoint, params *group.Params, bus Bus, sink *metrics.Sink, digest string, captureTranscript bool) *Participant {
	p := &Participant{
		Self:      self,
		Peers:     peers,
		XTable:    xTable,
		Point:     point,
		Params:    params,
		Bus:       bus,
		Sink:      sink,
		Digest:    digest,
		arith:     group.NewArith(params),
		state:     Init,
		ownShares: make(map[party.ID]*group.Scalar, len(peers)),
		received:  make(map[party.ID]*group.Scalar, len(peers)-1),
		partials:  make(map[party.ID]*group.Scalar, len(peers)-1),
	}
	if captureTranscript {
		p.transcript = wire.NewTranscript(digest)
	}
	return p
}

// State returns the participant's current lifecycle state.
func (p *Participant) State() State { return p.state }

// Transcript returns the participant's observed message log, or nil when
// the Coordinator did not enable transcript capture for this run.
func (p *Participant) Transcript() *wire.Transcript { return p.transcript }

// Run drives the participant through Init -> Sharing -> Exchanging ->
// Computing -> Broadcasting -> Aggregating -> Done, or to Failed on any
// error. It returns the protocol result f(eval_at).
func (p *Participant) Run(evalAt *group.Scalar) (*group.Scalar, error) {
	if err := p.init(evalAt); err != nil {
		p.state = Failed
		return nil, err
	}
	p.state = Sharing
	if err := p.share(); err != nil {
		p.state = Failed
		return nil, err
	}
	p.state = Exchanging
	if err := p.exchange(); err != nil {
		p.state = Failed
		return nil, err
	}
	p.state = Computing
	p.compute()
	p.state = Broadcasting
	if err := p.broadcast(); err != nil {
		p.state = Failed
		return nil, err
	}
	p.state = Aggregating
	result, err := p.aggregate()
	if err != nil {
		p.state = Failed
		return nil, err
	}
	p.state = Done
	return result, nil
}

// xOf returns the configured abscissa of id.
func (p *Participant) xOf(id party.ID) *group.Scalar {
	if id == p.Self {
		return p.Point.X
	}
	return p.XTable[id]
}

// init precomputes the Lagrange coefficient λ_j of every participant j, so
// a duplicate abscissa anywhere in the peer set fails every participant
// here with group.ErrNotInvertible.
func (p *Participant) init(evalAt *group.Scalar) error {
	xs := make([]*group.Scalar, len(p.Peers))
	selfIndex := -1
	for i, id := range p.Peers {
		xs[i] = p.xOf(id)
		if id == p.Self {
			selfIndex = i
		}
	}
	if selfIndex < 0 {
		return fmt.Errorf("%w: self %s not present in peer set", ErrProtocolViolation, p.Self)
	}
	p.lambdas = make(map[party.ID]*group.Scalar, len(p.Peers))
	var err error
	p.Sink.TimeCompute(p.Self, func() {
		for i, id := range p.Peers {
			var l *group.Scalar
			if l, err = p.arith.LagrangeCoefficient(xs, i, evalAt); err != nil {
				return
			}
			p.lambdas[id] = l
		}
	})
	return err
}

// otherPeers returns every peer ID except Self.
func (p *Participant) otherPeers() []party.ID {
	out := make([]party.ID, 0, len(p.Peers)-1)
	for _, id := range p.Peers {
		if id != p.Self {
			out = append(out, id)
		}
	}
	return out
}
