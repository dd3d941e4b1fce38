package wire_test

import (
	"bytes"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardmesh/lagrange/pkg/group"
	"github.com/shardmesh/lagrange/pkg/party"

	"github.com/shardmesh/lagrange/internal/wire"
)

func TestPayloadRoundTrip(t *testing.T) {
	gp := group.ToyParams()
	original := wire.Payload{
		Type:     wire.TypeShare,
		Round:    1,
		SenderID: party.ID(3),
		Value:    gp.ScalarFromBig(big.NewInt(7)),
	}

	decoded, err := wire.Decode(wire.Encode(original), gp)
	require.NoError(t, err)

	assert.Equal(t, original.Type, decoded.Type)
	assert.Equal(t, original.Round, decoded.Round)
	assert.Equal(t, original.SenderID, decoded.SenderID)
	assert.True(t, original.Value.Equal(decoded.Value))
}

func TestFrameRoundTrip(t *testing.T) {
	gp := group.ToyParams()
	payload := wire.Encode(wire.Payload{
		Type:     wire.TypePartial,
		Round:    3,
		SenderID: party.ID(0),
		Value:    gp.ScalarFromBig(big.NewInt(5)),
	})

	var buf bytes.Buffer
	require.NoError(t, wire.WriteFrame(&buf, payload))

	got, err := wire.ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDecodeRejectsShortPayload(t *testing.T) {
	gp := group.ToyParams()
	_, err := wire.Decode([]byte{1, 2, 3}, gp)
	assert.ErrorIs(t, err, wire.ErrMalformedFrame)
}

func TestTranscriptRoundTrip(t *testing.T) {
	gp := group.ToyParams()
	tr := wire.NewTranscript("deadbeef")
	tr.Record(party.ID(0), party.ID(1), wire.Payload{
		Type:     wire.TypeShare,
		Round:    1,
		SenderID: party.ID(0),
		Value:    gp.ScalarFromBig(big.NewInt(9)),
	}, time.Unix(0, 0))

	data, err := tr.MarshalCBOR()
	require.NoError(t, err)

	entries, err := wire.UnmarshalTranscript(data)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "deadbeef", entries[0].RunDigest)
	assert.Equal(t, party.ID(1), entries[0].To)
}
