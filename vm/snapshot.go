package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Snapshot is the externally visible state of a run.
type Snapshot struct {
	RunID         string            `cbor:"1,keyasint"`
	State         string            `cbor:"2,keyasint"`
	Stack         []string          `cbor:"3,keyasint,omitempty"` // outermost first
	Current       string            `cbor:"4,keyasint,omitempty"` // last command started
	Fields        map[string]string `cbor:"5,keyasint,omitempty"` // "Class.field" -> text
	Error         string            `cbor:"6,keyasint,omitempty"`
	Checkpoints   int64             `cbor:"7,keyasint"`
	ElapsedMillis int64             `cbor:"8,keyasint"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalSnapshot serializes a snapshot to canonical CBOR.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("vm: unmarshal snapshot: %w", err)
	}
	return s, nil
}
