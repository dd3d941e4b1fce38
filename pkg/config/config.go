// Package config defines the run configuration record the Coordinator
// consumes, and the deterministic test-mode input derivation used when a
// run should be reproducible without weakening production randomness.
package config

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/shardmesh/lagrange/internal/netsim"
	"github.com/shardmesh/lagrange/pkg/group"
	"github.com/shardmesh/lagrange/pkg/party"
)

// Config is the configuration record the external experiment driver
// assembles and passes to Coordinator.Run. Everything the driver itself
// does with the resulting RunRecord — grid sweeps, plotting, on-disk
// serialization — stays outside this package.
type Config struct {
	// PrimeP, OrderQ, GeneratorG define the group the run operates over.
	PrimeP, OrderQ, GeneratorG *big.Int

	// EvalAt is the public abscissa the polynomial is interpolated at.
	// Defaults to 0 when nil.
	EvalAt *big.Int

	// N is the number of participants. Must be >= 2.
	N int

	// Profile is the simulated network profile every participant's
	// links are shaped with.
	Profile netsim.Profile

	// DeadlineMs is the run's wall-clock timeout. Defaults to 60000 when
	// zero.
	DeadlineMs int

	// TestMode, when true, asks the Coordinator to generate its own
	// inputs (deterministically if Seed is set, from crypto/rand
	// otherwise) and to verify the protocol's result in the clear.
	TestMode bool

	// Seed, when non-empty and TestMode is true, makes input generation
	// deterministic: the same seed always produces the same
	// PrivatePoints, via HKDF-expanded randomness. Production runs never
	// use Seed; GroupArith.RandomScalar always reads crypto/rand.
	Seed []byte

	// CaptureTranscript, when true, has every participant record an
	// in-memory log of every frame it sent, for test assertions.
	CaptureTranscript bool

	// Inputs supplies explicit PrivatePoints, keyed by participant ID.
	// Ignored when TestMode generates its own inputs.
	Inputs map[party.ID]party.PrivatePoint
}

// Params builds a group.Params from the configuration's PrimeP, OrderQ,
// and GeneratorG.
func (c *Config) Params() *group.Params {
	return group.NewParams(c.PrimeP, c.OrderQ, c.GeneratorG)
}

// EvalAtOrDefault returns EvalAt, defaulting to 0 when unset.
func (c *Config) EvalAtOrDefault() *big.Int {
	if c.EvalAt != nil {
		return c.EvalAt
	}
	return big.NewInt(0)
}

// Deadline returns the configured wall-clock deadline, defaulting to 60s.
func (c *Config) Deadline() time.Duration {
	if c.DeadlineMs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.DeadlineMs) * time.Millisecond
}

// DeriveTestInputs expands Seed via HKDF-SHA256 into N distinct,
// deterministic PrivatePoints: x_i = i+1 (distinct and nonzero by
// construction), y_i drawn from the expanded stream reduced mod q. This
// lets a test-mode run be replayed byte-for-byte from a seed without
// touching the OS randomness source that production sharing relies on.
func DeriveTestInputs(params *group.Params, seed []byte, n int) (map[party.ID]party.PrivatePoint, error) {
	if len(seed) == 0 {
		seed = []byte("lagrange-default-seed")
	}
	kdf := hkdf.New(sha256.New, seed, nil, []byte("lagrange-test-inputs"))

	scalarLen := params.ScalarLen()
	points := make(map[party.ID]party.PrivatePoint, n)
	for i := 0; i < n; i++ {
		buf := make([]byte, scalarLen)
		if _, err := io.ReadFull(kdf, buf); err != nil {
			return nil, fmt.Errorf("config: derive test input %d: %w", i, err)
		}
		points[party.ID(i)] = party.PrivatePoint{
			X: params.ScalarFromBig(big.NewInt(int64(i + 1))),
			Y: params.ScalarFromBytes(buf),
		}
	}
	return points, nil
}
