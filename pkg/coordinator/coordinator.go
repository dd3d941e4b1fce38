// Package coordinator instantiates a run of the Lagrange interpolation
// protocol: it builds the group parameters, the participants, and the
// shaped message bus, starts every participant concurrently, and
// collects the result plus timing into a RunRecord.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"github.com/shardmesh/lagrange/internal/engine"
	"github.com/shardmesh/lagrange/internal/metrics"
	"github.com/shardmesh/lagrange/internal/netsim"
	"github.com/shardmesh/lagrange/internal/wire"
	"github.com/shardmesh/lagrange/pkg/config"
	"github.com/shardmesh/lagrange/pkg/group"
	"github.com/shardmesh/lagrange/pkg/party"
)

// ErrTimeout is returned when a run does not finish within its
// configured deadline.
var ErrTimeout = errors.New("coordinator: deadline exceeded")

// RunRecord is the result of a single protocol run.
type RunRecord struct {
	ParticipantsN     int           `json:"participants_n"`
	NetworkProfile    netsim.Profile `json:"network_profile"`
	WallClockTotal    time.Duration `json:"wall_clock_total"`
	ComputeNs         int64         `json:"compute_ns"`
	NetworkWaitNs     int64         `json:"network_wait_ns"`
	BytesSent         uint64        `json:"bytes_sent"`
	BytesRecv         uint64        `json:"bytes_recv"`
	InterpolatedValue *big.Int      `json:"interpolated_value,omitempty"`
	ExpectedValue     *big.Int      `json:"expected_value,omitempty"`
	OK                bool          `json:"ok"`
	ErrorKind         string        `json:"error_kind,omitempty"`
	Digest            string        `json:"digest"`

	// Transcript is the merged, time-ordered log of every frame sent by
	// every participant, populated only when Config.CaptureTranscript is
	// set. nil otherwise, so a normal run pays nothing for it.
	Transcript []wire.TranscriptEntry `json:"transcript,omitempty"`
}

// Digest returns a blake3 fingerprint of the group parameters, N, the
// network profile, and the evaluation point, used to tag the RunRecord
// and every transcript entry a run produces so concurrent runs can be
// told apart.
func Digest(cfg *config.Config) string {
	h := blake3.New()
	fmt.Fprintf(h, "p=%s;q=%s;g=%s;n=%d;delay=%s;bw=%d;loss=%f;eval=%s",
		cfg.PrimeP, cfg.OrderQ, cfg.GeneratorG, cfg.N,
		cfg.Profile.OneWayDelay, cfg.Profile.BandwidthBps, cfg.Profile.LossProbability,
		cfg.EvalAtOrDefault())
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}

// Run builds N participants over a shaped bus, starts them concurrently,
// and blocks until every participant reaches Done, one reaches Failed, or
// the configured deadline expires. Once its inputs are resolved it returns
// a RunRecord; a failed run has OK=false and a non-empty ErrorKind rather than a
// non-nil error, matching §7's "all errors surface at the Coordinator
// boundary as ok=false" propagation policy. The returned error is
// reserved for configuration problems the Coordinator cannot proceed
// past, not for participant protocol failures.
func Run(ctx context.Context, cfg *config.Config) (*RunRecord, error) {
	start := time.Now()
	if cfg.N < 2 {
		return nil, fmt.Errorf("coordinator: N must be >= 2, got %d", cfg.N)
	}

	params := cfg.Params()
	digest := Digest(cfg)

	points, err := resolveInputs(params, cfg)
	if err != nil {
		return nil, err
	}
	if !party.DistinctAbscissas(points) {
		return recordFor(cfg, digest, start, group.ErrNotInvertible)
	}

	ids := make([]party.ID, 0, cfg.N)
	for id := range points {
		ids = append(ids, id)
	}
	ids = party.Sorted(ids)

	xTable := make(map[party.ID]*group.Scalar, len(ids))
	for id, pt := range points {
		xTable[id] = pt.X
	}

	bus := netsim.NewBus(ids, cfg.Profile)
	defer bus.Close()

	sink := metrics.NewSink(ids)
	evalAt := params.ScalarFromBig(cfg.EvalAtOrDefault())

	runCtx, cancel := context.WithTimeout(ctx, cfg.Deadline())
	defer cancel()

	g, gCtx := errgroup.WithContext(runCtx)
	results := make([]*group.Scalar, len(ids))
	participants := make([]*engine.Participant, len(ids))

	for i, id := range ids {
		i, id := i, id
		p := engine.New(id, ids, xTable, points[id], params, bus, sink, digest, cfg.CaptureTranscript)
		participants[i] = p
		g.Go(func() error {
			r, err := p.Run(evalAt)
			if err != nil {
				return fmt.Errorf("participant %s: %w", id, err)
			}
			results[i] = r
			return nil
		})
	}

	// Closing the bus is what makes cancellation concrete: once the
	// errgroup's context is cancelled (by a participant error or by the
	// deadline), every pending Recv unblocks with ErrBusClosed and the
	// remaining participants transition to Failed on their own.
	watchdog := make(chan struct{})
	go func() {
		select {
		case <-gCtx.Done():
			bus.Close()
		case <-watchdog:
		}
	}()

	runErr := g.Wait()
	close(watchdog)

	if runErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return recordFrom(cfg, digest, start, bus, sink, ids, participants, nil, ErrTimeout)
		}
		return recordFrom(cfg, digest, start, bus, sink, ids, participants, nil, runErr)
	}

	f := results[0]
	for _, r := range results[1:] {
		if !f.Equal(r) {
			return recordFrom(cfg, digest, start, bus, sink, ids, participants, f, fmt.Errorf("%w: participants disagree on result", engine.ErrProtocolViolation))
		}
	}

	return finalizeRecord(cfg, digest, start, bus, sink, ids, participants, params, points, f)
}

// collectTranscript merges every participant's recorded frames into a
// single time-ordered log. Returns nil when transcript capture was not
// enabled (each participant's Transcript() is nil in that case).
func collectTranscript(participants []*engine.Participant) []wire.TranscriptEntry {
	var merged []wire.TranscriptEntry
	for _, p := range participants {
		t := p.Transcript()
		if t == nil {
			continue
		}
		merged = append(merged, t.Entries()...)
	}
	if merged == nil {
		return nil
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].At.Before(merged[j].At) })
	return merged
}

func resolveInputs(params *group.Params, cfg *config.Config) (map[party.ID]party.PrivatePoint, error) {
	if cfg.TestMode {
		if len(cfg.Seed) > 0 {
			return config.DeriveTestInputs(params, cfg.Seed, cfg.N)
		}
		return randomTestInputs(params, cfg.N)
	}
	if len(cfg.Inputs) != cfg.N {
		return nil, fmt.Errorf("coordinator: expected %d inputs, got %d", cfg.N, len(cfg.Inputs))
	}
	return cfg.Inputs, nil
}

// randomTestInputs builds N PrivatePoints from crypto/rand: x_i = i+1,
// y_i uniform in [0, q).
func randomTestInputs(params *group.Params, n int) (map[party.ID]party.PrivatePoint, error) {
	arith := group.NewArith(params)
	points := make(map[party.ID]party.PrivatePoint, n)
	for i := 0; i < n; i++ {
		y, err := arith.RandomScalar()
		if err != nil {
			return nil, err
		}
		points[party.ID(i)] = party.PrivatePoint{
			X: params.ScalarFromBig(big.NewInt(int64(i + 1))),
			Y: y,
		}
	}
	return points, nil
}

func clearTextInterpolate(params *group.Params, points map[party.ID]party.PrivatePoint, evalAt *big.Int) (*group.Scalar, error) {
	arith := group.NewArith(params)
	ids := make([]party.ID, 0, len(points))
	for id := range points {
		ids = append(ids, id)
	}
	ids = party.Sorted(ids)

	xs := make([]*group.Scalar, len(ids))
	for i, id := range ids {
		xs[i] = points[id].X
	}
	eval := params.ScalarFromBig(evalAt)

	sum := params.ScalarFromBig(big.NewInt(0))
	for i, id := range ids {
		lambda, err := arith.LagrangeCoefficient(xs, i, eval)
		if err != nil {
			return nil, err
		}
		sum = arith.AddScalar(sum, arith.MulScalar(lambda, points[id].Y))
	}
	return sum, nil
}

func finalizeRecord(cfg *config.Config, digest string, start time.Time, bus *netsim.Bus, sink *metrics.Sink, ids []party.ID, participants []*engine.Participant, params *group.Params, points map[party.ID]party.PrivatePoint, result *group.Scalar) (*RunRecord, error) {
	rec := baseRecord(cfg, digest, start, bus, sink, ids, participants)
	rec.InterpolatedValue = result.Big()
	rec.OK = true

	if cfg.TestMode {
		expected, err := clearTextInterpolate(params, points, cfg.EvalAtOrDefault())
		if err == nil {
			rec.ExpectedValue = expected.Big()
			rec.OK = expected.Equal(result)
		}
	}
	return rec, nil
}

func recordFrom(cfg *config.Config, digest string, start time.Time, bus *netsim.Bus, sink *metrics.Sink, ids []party.ID, participants []*engine.Participant, result *group.Scalar, err error) (*RunRecord, error) {
	rec := baseRecord(cfg, digest, start, bus, sink, ids, participants)
	rec.OK = false
	rec.ErrorKind = errorKind(err)
	if result != nil {
		rec.InterpolatedValue = result.Big()
	}
	return rec, nil
}

func recordFor(cfg *config.Config, digest string, start time.Time, err error) (*RunRecord, error) {
	rec := &RunRecord{
		ParticipantsN:  cfg.N,
		NetworkProfile: cfg.Profile,
		WallClockTotal: time.Since(start),
		OK:             false,
		ErrorKind:      errorKind(err),
		Digest:         digest,
	}
	return rec, nil
}

func baseRecord(cfg *config.Config, digest string, start time.Time, bus *netsim.Bus, sink *metrics.Sink, ids []party.ID, participants []*engine.Participant) *RunRecord {
	var sent, recv uint64
	for _, id := range ids {
		sent += bus.BytesSent(id)
		recv += bus.BytesRecv(id)
	}
	return &RunRecord{
		ParticipantsN:  cfg.N,
		NetworkProfile: cfg.Profile,
		WallClockTotal: time.Since(start),
		ComputeNs:      sink.ComputeNs(),
		NetworkWaitNs:  sink.WaitNs(),
		BytesSent:      sent,
		BytesRecv:      recv,
		Digest:         digest,
		Transcript:     collectTranscript(participants),
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "Timeout"
	case errors.Is(err, group.ErrNotInvertible):
		return "NotInvertible"
	case errors.Is(err, group.ErrRNGUnavailable):
		return "RNGUnavailable"
	case errors.Is(err, netsim.ErrPeerUnreachable):
		return "PeerUnreachable"
	case errors.Is(err, netsim.ErrBusClosed):
		return "BusClosed"
	case errors.Is(err, engine.ErrProtocolViolation):
		return "ProtocolViolation"
	default:
		return "Unknown"
	}
}
