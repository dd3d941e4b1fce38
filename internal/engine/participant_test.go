package engine_test

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardmesh/lagrange/internal/engine"
	"github.com/shardmesh/lagrange/internal/metrics"
	"github.com/shardmesh/lagrange/internal/netsim"
	"github.com/shardmesh/lagrange/pkg/group"
	"github.com/shardmesh/lagrange/pkg/party"
)

// runToyProtocol wires N participants over a real (zero-latency) bus
// using the toy parameters from the specification's worked example and
// returns every participant's result plus any error encountered.
func runToyProtocol(t *testing.T, points map[party.ID]party.PrivatePoint, evalAtInt int64) ([]*group.Scalar, []error) {
	t.Helper()
	params := group.ToyParams()

	ids := make([]party.ID, 0, len(points))
	for id := range points {
		ids = append(ids, id)
	}
	ids = party.Sorted(ids)

	xTable := make(map[party.ID]*group.Scalar, len(ids))
	for id, pt := range points {
		xTable[id] = pt.X
	}

	bus := netsim.NewBus(ids, netsim.Unlimited)
	defer bus.Close()

	sink := metrics.NewSink(ids)
	evalAt := params.ScalarFromBig(big.NewInt(evalAtInt))

	results := make([]*group.Scalar, len(ids))
	errs := make([]error, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id party.ID) {
			defer wg.Done()
			p := engine.New(id, ids, xTable, points[id], params, bus, sink, "test", false)
			r, err := p.Run(evalAt)
			results[i] = r
			errs[i] = err
		}(i, id)
	}
	wg.Wait()
	return results, errs
}

func TestToyScenarioMatchesSpecWorkedExample(t *testing.T) {
	params := group.ToyParams()
	points := map[party.ID]party.PrivatePoint{
		0: {X: params.ScalarFromBig(big.NewInt(1)), Y: params.ScalarFromBig(big.NewInt(4))},
		1: {X: params.ScalarFromBig(big.NewInt(2)), Y: params.ScalarFromBig(big.NewInt(5))},
		2: {X: params.ScalarFromBig(big.NewInt(3)), Y: params.ScalarFromBig(big.NewInt(6))},
	}

	results, errs := runToyProtocol(t, points, 0)
	for _, err := range errs {
		require.NoError(t, err)
	}
	for _, r := range results {
		assert.Equal(t, big.NewInt(3), r.Big())
	}
}

func TestAllParticipantsAgreeOnResult(t *testing.T) {
	params := group.ToyParams()
	points := map[party.ID]party.PrivatePoint{
		0: {X: params.ScalarFromBig(big.NewInt(1)), Y: params.ScalarFromBig(big.NewInt(9))},
		1: {X: params.ScalarFromBig(big.NewInt(5)), Y: params.ScalarFromBig(big.NewInt(2))},
		2: {X: params.ScalarFromBig(big.NewInt(7)), Y: params.ScalarFromBig(big.NewInt(10))},
	}

	results, errs := runToyProtocol(t, points, 0)
	for _, err := range errs {
		require.NoError(t, err)
	}
	for i := 1; i < len(results); i++ {
		assert.True(t, results[0].Equal(results[i]))
	}
}

func TestDuplicateAbscissaIsNotInvertible(t *testing.T) {
	params := group.ToyParams()
	// x=(1,1,2): party 0 and party 1 share an abscissa, so the Lagrange
	// denominator (x_i - x_j) is zero for that pair.
	points := map[party.ID]party.PrivatePoint{
		0: {X: params.ScalarFromBig(big.NewInt(1)), Y: params.ScalarFromBig(big.NewInt(4))},
		1: {X: params.ScalarFromBig(big.NewInt(1)), Y: params.ScalarFromBig(big.NewInt(5))},
		2: {X: params.ScalarFromBig(big.NewInt(2)), Y: params.ScalarFromBig(big.NewInt(6))},
	}

	_, errs := runToyProtocol(t, points, 0)
	var sawErr bool
	for _, err := range errs {
		if err != nil {
			sawErr = true
			assert.ErrorIs(t, err, group.ErrNotInvertible)
		}
	}
	assert.True(t, sawErr)
}
