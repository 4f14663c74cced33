package logg

// Log field keys shared by every layer.
const (
	Layer     = "layer"
	Operation = "op"
	AttemptID = "attempt_id"
	Attempt   = "attempt"
	Step      = "step"
	Element   = "element"
	Selector  = "selector"
	URL       = "url"
	Outcome   = "outcome"
)
