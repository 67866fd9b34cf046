package models

// Status is the lifecycle state of a content item on the receiving side.
type Status string

const (
	StatusReceiving  Status = "receiving"
	StatusReady      Status = "ready"
	StatusAssembling Status = "assembling"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// ExpectedCountUnknown marks a progress entry whose fragment count has not
// been declared yet (no metadata and no fragment carried the count).
const ExpectedCountUnknown = -1

// ContentProgress is the derived per-content status. It is a pure function of
// the cache stores plus the engine's assembling/terminal transitions.
type ContentProgress struct {
	ContentID     string
	Status        Status
	ReceivedCount int
	ExpectedCount int
	// ErrorDetail is set only when Status is StatusError.
	ErrorDetail string
}

// Percentage returns the completion percentage. The second return is false
// when the expected count is unknown: the percentage is undefined then, not
// zero.
func (p ContentProgress) Percentage() (float64, bool) {
	if p.Status == StatusDone {
		return 100, true
	}
	if p.ExpectedCount == ExpectedCountUnknown || p.ExpectedCount == 0 {
		return 0, false
	}
	return float64(p.ReceivedCount) / float64(p.ExpectedCount) * 100, true
}

// Terminal reports whether the status is final.
func (p ContentProgress) Terminal() bool {
	return p.Status == StatusDone || p.Status == StatusError
}
