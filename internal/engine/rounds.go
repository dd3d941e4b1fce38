package engine

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shardmesh/lagrange/internal/wire"
	"github.com/shardmesh/lagrange/pkg/group"
	"github.com/shardmesh/lagrange/pkg/party"
)

// share draws a fresh random scalar for every peer but self, then sets
// the share it keeps for itself to y_i minus the sum of those draws, so
// the full N-share set sums to y_i mod q. Only the N-1 drawn shares ever
// leave the process; the self share never crosses the bus.
func (p *Participant) share() error {
	others := p.otherPeers()
	var drawErr error

	p.Sink.TimeCompute(p.Self, func() {
		sum := p.zero()
		for _, peer := range others {
			r, err := p.arith.RandomScalar()
			if err != nil {
				drawErr = err
				return
			}
			p.ownShares[peer] = r
			sum = p.arith.AddScalar(sum, r)
		}
		p.ownShares[p.Self] = p.arith.SubScalar(p.Point.Y, sum)
	})
	if drawErr != nil {
		return drawErr
	}

	for _, peer := range others {
		value := p.ownShares[peer]
		payload := wire.Encode(wire.Payload{
			Type:     wire.TypeShare,
			Round:    1,
			SenderID: p.Self,
			Value:    value,
		})
		if err := p.Bus.Send(p.Self, peer, payload); err != nil {
			return fmt.Errorf("round 1: send share to %s: %w", peer, err)
		}
		if p.transcript != nil {
			p.transcript.Record(p.Self, peer, wire.Payload{Type: wire.TypeShare, Round: 1, SenderID: p.Self, Value: value}, time.Now())
		}
	}
	p.received[p.Self] = p.ownShares[p.Self]
	return nil
}

// zero returns the additive identity scalar in this participant's group.
func (p *Participant) zero() *group.Scalar {
	return p.Params.ScalarFromBig(big.NewInt(0))
}

// exchange awaits exactly one SHARE message from every other peer.
func (p *Participant) exchange() error {
	others := p.otherPeers()
	need := len(others)
	for need > 0 {
		waitStart := time.Now()
		from, raw, err := p.Bus.Recv(p.Self)
		p.Sink.TimeWait(p.Self, time.Since(waitStart))
		if err != nil {
			return fmt.Errorf("round 1: recv share: %w", err)
		}
		payload, err := wire.Decode(raw, p.Params)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrProtocolViolation, err)
		}
		if payload.Type != wire.TypeShare || payload.Round != 1 {
			return fmt.Errorf("%w: unexpected message type/round from %s", ErrProtocolViolation, from)
		}
		if payload.SenderID != from {
			return fmt.Errorf("%w: sender mismatch from %s", ErrProtocolViolation, from)
		}
		if _, dup := p.received[from]; dup {
			return fmt.Errorf("%w: duplicate share from %s", ErrProtocolViolation, from)
		}
		if !containsID(others, from) {
			return fmt.Errorf("%w: share from unknown peer %s", ErrProtocolViolation, from)
		}
		p.received[from] = payload.Value
		need--
	}
	return nil
}

// compute evaluates the local partial p_i = Σ_j λ_j * s_j mod q over
// every share this participant holds (its own kept share plus one
// received from each peer), weighting each share by the Lagrange
// coefficient of the participant that originated it. Across all holders
// the shares of j sum to y_j, so the partials sum to Σ_j λ_j * y_j.
func (p *Participant) compute() {
	p.Sink.TimeCompute(p.Self, func() {
		sum := p.zero()
		for from, s := range p.received {
			sum = p.arith.AddScalar(sum, p.arith.MulScalar(p.lambdas[from], s))
		}
		p.partial = sum
	})
}

// broadcast sends this participant's partial result to every peer.
func (p *Participant) broadcast() error {
	payload := wire.Encode(wire.Payload{
		Type:     wire.TypePartial,
		Round:    2,
		SenderID: p.Self,
		Value:    p.partial,
	})
	if err := p.Bus.Broadcast(p.Self, payload); err != nil {
		return fmt.Errorf("round 2: broadcast partial: %w", err)
	}
	if p.transcript != nil {
		for _, peer := range p.otherPeers() {
			p.transcript.Record(p.Self, peer, wire.Payload{Type: wire.TypePartial, Round: 2, SenderID: p.Self, Value: p.partial}, time.Now())
		}
	}
	p.partials[p.Self] = p.partial
	return nil
}

// aggregate awaits exactly one PARTIAL message from every other peer and
// sums all N partials (including this participant's own) to produce the
// final interpolated value.
func (p *Participant) aggregate() (*group.Scalar, error) {
	others := p.otherPeers()
	need := len(others)
	for need > 0 {
		waitStart := time.Now()
		from, raw, err := p.Bus.Recv(p.Self)
		p.Sink.TimeWait(p.Self, time.Since(waitStart))
		if err != nil {
			return nil, fmt.Errorf("round 2: recv partial: %w", err)
		}
		payload, err := wire.Decode(raw, p.Params)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
		}
		if payload.Type != wire.TypePartial || payload.Round != 2 {
			return nil, fmt.Errorf("%w: unexpected message type/round from %s", ErrProtocolViolation, from)
		}
		if payload.SenderID != from {
			return nil, fmt.Errorf("%w: sender mismatch from %s", ErrProtocolViolation, from)
		}
		if _, dup := p.partials[from]; dup {
			return nil, fmt.Errorf("%w: duplicate partial from %s", ErrProtocolViolation, from)
		}
		if !containsID(others, from) {
			return nil, fmt.Errorf("%w: partial from unknown peer %s", ErrProtocolViolation, from)
		}
		p.partials[from] = payload.Value
		need--
	}

	var f *group.Scalar
	p.Sink.TimeCompute(p.Self, func() {
		f = p.zero()
		for _, pr := range p.partials {
			f = p.arith.AddScalar(f, pr)
		}
	})
	return f, nil
}

func containsID(ids []party.ID, target party.ID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
