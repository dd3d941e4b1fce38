package wire

import (
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/shardmesh/lagrange/pkg/party"
)

// TranscriptEntry records one frame observed on the bus, tagged with the
// run's digest so entries from concurrent runs can be told apart in a
// shared log or test fixture.
type TranscriptEntry struct {
	RunDigest string      `cbor:"run_digest"`
	From      party.ID    `cbor:"from"`
	To        party.ID    `cbor:"to"`
	Type      MessageType `cbor:"type"`
	Round     uint8       `cbor:"round"`
	ValueHex  string      `cbor:"value"`
	At        time.Time   `cbor:"at"`
}

// Transcript is a concurrent-safe, append-only record of frames observed
// during a run, used by tests to assert on the exact message sequence
// without reaching into bus internals.
type Transcript struct {
	mu      sync.Mutex
	digest  string
	entries []TranscriptEntry
}

// NewTranscript returns an empty Transcript tagged with digest.
func NewTranscript(digest string) *Transcript {
	return &Transcript{digest: digest}
}

// Record appends an entry built from a decoded Payload.
func (t *Transcript) Record(from, to party.ID, p Payload, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, TranscriptEntry{
		RunDigest: t.digest,
		From:      from,
		To:        to,
		Type:      p.Type,
		Round:     p.Round,
		ValueHex:  fmt.Sprintf("%x", p.Value.Bytes()),
		At:        at,
	})
}

// Entries returns a snapshot copy of the recorded entries.
func (t *Transcript) Entries() []TranscriptEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TranscriptEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// MarshalCBOR serializes the current transcript snapshot.
func (t *Transcript) MarshalCBOR() ([]byte, error) {
	return MarshalEntriesCBOR(t.Entries())
}

// MarshalEntriesCBOR serializes a standalone slice of entries, such as
// the merged transcript a Coordinator run collects across participants.
func MarshalEntriesCBOR(entries []TranscriptEntry) ([]byte, error) {
	return cbor.Marshal(entries)
}

// UnmarshalTranscript decodes a transcript snapshot previously produced by
// MarshalCBOR.
func UnmarshalTranscript(data []byte) ([]TranscriptEntry, error) {
	var entries []TranscriptEntry
	if err := cbor.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("wire: unmarshal transcript: %w", err)
	}
	return entries, nil
}
