package types

// Event is the rendered form of a committed module event. Sequence numbers
// are assigned by the node in commit order starting at 1; Time is the unix
// second of the transition that emitted it.
type Event struct {
	Sequence   uint64            `json:"sequence"`
	Time       int64             `json:"time"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
