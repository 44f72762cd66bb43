package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedDocument marks a state document that failed the minimal schema
// check: clients and goals must be present and be JSON arrays.
var ErrMalformedDocument = errors.New("malformed state document")

// EncodeState serializes the state to its canonical JSON document. The same
// document format is used by the local cache slot, the remote record, and
// export files, so a document round-trips losslessly between all three.
func EncodeState(s AppState) ([]byte, error) {
	doc, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return doc, nil
}

// DecodeState parses a state document. Before accepting external data it
// checks that both collections are present and array-typed; anything else is
// rejected wholesale so a bad import never partially applies. Missing
// currency falls back to the default symbol.
func DecodeState(doc []byte) (AppState, error) {
	var probe struct {
		Clients json.RawMessage `json:"clients"`
		Goals   json.RawMessage `json:"goals"`
	}
	if err := json.Unmarshal(doc, &probe); err != nil {
		return AppState{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if !isJSONArray(probe.Clients) || !isJSONArray(probe.Goals) {
		return AppState{}, ErrMalformedDocument
	}

	var s AppState
	if err := json.Unmarshal(doc, &s); err != nil {
		return AppState{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if s.Clients == nil {
		s.Clients = []Client{}
	}
	if s.Goals == nil {
		s.Goals = []MonthlyGoal{}
	}
	if s.Currency == "" {
		s.Currency = DefaultCurrency
	}
	return s, nil
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
