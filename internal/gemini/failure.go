package gemini

import "encoding/json"

// FailureMarker is the structured payload written to an item's output when
// captioning fails. It is data, not a raised error: the serialized form
// lands in the caption file verbatim so the results scan can recognize the
// item as still failing on later runs.
type FailureMarker struct {
	Error string `json:"error"`
}

// Payload serializes the marker for writing to the output destination.
func (f *FailureMarker) Payload() string {
	data, err := json.Marshal(f)
	if err != nil {
		// Marshalling a one-field string struct cannot fail; keep a
		// recognizable marker anyway.
		return `{"error":"failed to serialize failure marker"}`
	}
	return string(data)
}

// Result is the outcome of one captioning call: either a clean caption or
// a failure marker, plus the text to write and the key that produced it.
type Result struct {
	Text     string
	Failure  *FailureMarker
	KeyIndex int
}

// OK reports whether the call produced a clean caption.
func (r Result) OK() bool {
	return r.Failure == nil
}

func failureResult(keyIndex int, message string) Result {
	marker := &FailureMarker{Error: message}
	return Result{Text: marker.Payload(), Failure: marker, KeyIndex: keyIndex}
}
