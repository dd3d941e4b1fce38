package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardmesh/lagrange/pkg/config"
	"github.com/shardmesh/lagrange/pkg/group"
	"github.com/shardmesh/lagrange/pkg/party"
)

func TestDeriveTestInputsIsDeterministic(t *testing.T) {
	params := group.ToyParams()
	seed := []byte("fixed-seed")

	a, err := config.DeriveTestInputs(params, seed, 3)
	require.NoError(t, err)
	b, err := config.DeriveTestInputs(params, seed, 3)
	require.NoError(t, err)

	for id := range a {
		assert.True(t, a[id].X.Equal(b[id].X))
		assert.True(t, a[id].Y.Equal(b[id].Y))
	}
}

func TestDeriveTestInputsDistinctAbscissas(t *testing.T) {
	params := group.ToyParams()
	points, err := config.DeriveTestInputs(params, []byte("seed"), 5)
	require.NoError(t, err)
	assert.True(t, party.DistinctAbscissas(points))
}

func TestDeadlineDefault(t *testing.T) {
	c := &config.Config{}
	assert.Equal(t, float64(60), c.Deadline().Seconds())
}
