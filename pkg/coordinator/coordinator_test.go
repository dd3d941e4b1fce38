package coordinator_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardmesh/lagrange/internal/netsim"
	"github.com/shardmesh/lagrange/pkg/config"
	"github.com/shardmesh/lagrange/pkg/coordinator"
	"github.com/shardmesh/lagrange/pkg/group"
	"github.com/shardmesh/lagrange/pkg/party"
)

func toyCfg() *config.Config {
	toy := group.ToyParams()
	return &config.Config{
		PrimeP:     toy.P(),
		OrderQ:     toy.Q(),
		GeneratorG: big.NewInt(2),
		N:          3,
		Profile:    netsim.Unlimited,
		TestMode:   true,
		Seed:       []byte("coordinator-test-seed"),
	}
}

func TestRunMatchesClearTextVerification(t *testing.T) {
	rec, err := coordinator.Run(context.Background(), toyCfg())
	require.NoError(t, err)
	require.True(t, rec.OK, "error kind: %s", rec.ErrorKind)
	require.NotNil(t, rec.ExpectedValue)
	assert.Equal(t, 0, rec.InterpolatedValue.Cmp(rec.ExpectedValue))
	assert.Equal(t, 3, rec.ParticipantsN)
}

func TestRunIsDeterministicForAFixedSeed(t *testing.T) {
	a, err := coordinator.Run(context.Background(), toyCfg())
	require.NoError(t, err)
	b, err := coordinator.Run(context.Background(), toyCfg())
	require.NoError(t, err)
	assert.Equal(t, 0, a.InterpolatedValue.Cmp(b.InterpolatedValue))
}

func TestRunRejectsDuplicateAbscissas(t *testing.T) {
	toy := group.ToyParams()
	cfg := &config.Config{
		PrimeP:     toy.P(),
		OrderQ:     toy.Q(),
		GeneratorG: big.NewInt(2),
		N:          3,
		Profile:    netsim.Unlimited,
		TestMode:   false,
		Inputs: map[party.ID]party.PrivatePoint{
			0: {X: toy.ScalarFromBig(big.NewInt(1)), Y: toy.ScalarFromBig(big.NewInt(4))},
			1: {X: toy.ScalarFromBig(big.NewInt(1)), Y: toy.ScalarFromBig(big.NewInt(5))},
			2: {X: toy.ScalarFromBig(big.NewInt(2)), Y: toy.ScalarFromBig(big.NewInt(6))},
		},
	}

	rec, err := coordinator.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, rec.OK)
	assert.Equal(t, "NotInvertible", rec.ErrorKind)
}

func TestRunTimesOutWhenDeadlineIsTooShort(t *testing.T) {
	toy := group.ToyParams()
	cfg := &config.Config{
		PrimeP:     toy.P(),
		OrderQ:     toy.Q(),
		GeneratorG: big.NewInt(2),
		N:          3,
		Profile:    netsim.Profile{OneWayDelay: 500 * time.Millisecond},
		DeadlineMs: 1,
		TestMode:   true,
		Seed:       []byte("timeout-seed"),
	}

	rec, err := coordinator.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, rec.OK)
	assert.Equal(t, "Timeout", rec.ErrorKind)
}

func TestRunRejectsTooFewParticipants(t *testing.T) {
	cfg := toyCfg()
	cfg.N = 1
	_, err := coordinator.Run(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRunOmitsTranscriptByDefault(t *testing.T) {
	rec, err := coordinator.Run(context.Background(), toyCfg())
	require.NoError(t, err)
	require.True(t, rec.OK)
	assert.Empty(t, rec.Transcript)
}

func TestRunCapturesTranscriptWhenEnabled(t *testing.T) {
	cfg := toyCfg()
	cfg.CaptureTranscript = true

	rec, err := coordinator.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.True(t, rec.OK)

	// Each of the 3 participants sends 2 round-1 shares and broadcasts 2
	// round-2 partials, for 2*(N-1) entries per participant.
	assert.Len(t, rec.Transcript, 3*2*(3-1))
	for _, e := range rec.Transcript {
		assert.Equal(t, rec.Digest, e.RunDigest)
	}
	for i := 1; i < len(rec.Transcript); i++ {
		assert.False(t, rec.Transcript[i].At.Before(rec.Transcript[i-1].At))
	}
}
