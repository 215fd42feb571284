// Package snapshot encodes the persisted ledger document and hosts its storage
// backends, one subpackage each. Every backend stores exactly one document.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kinshukkush/smartsplit/internal/encoding"
	"github.com/kinshukkush/smartsplit/internal/ledger"
)

// Encode renders snap as the persisted JSON document.
func Encode(snap ledger.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap.Normalize())
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	return data, nil
}

// EncodeIndent is Encode for documents meant to be read by people.
func EncodeIndent(snap ledger.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap.Normalize(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	return data, nil
}

// Decode parses a persisted document in any supported text encoding. Unknown
// keys are ignored so documents carrying transient UI fields still load.
func Decode(data []byte) (ledger.Snapshot, error) {
	text, _, err := encoding.ToUTF8(data)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	if len(bytes.TrimSpace(text)) == 0 {
		return ledger.Snapshot{}, ledger.Invalid("snapshot", "document is empty")
	}

	var snap ledger.Snapshot
	if err := json.Unmarshal(text, &snap); err != nil {
		return ledger.Snapshot{}, ledger.Invalid("snapshot", fmt.Sprintf("malformed document: %v", err))
	}

	return snap.Normalize(), nil
}
