package errortypes

// Severity represents the severity level of a codec error.
type Severity int

const (
	// SeverityUnknown represents an unknown severity level.
	SeverityUnknown Severity = iota

	// SeverityFatal represents an error which prevents a value from being encoded, decoded or built.
	SeverityFatal

	// SeverityWarning represents a non-fatal condition where the value was still produced.
	SeverityWarning
)

// IsWarning returns true if an error is labeled with a Severity of SeverityWarning
func IsWarning(err error) bool {
	s, ok := err.(Coder)
	return ok && s.Severity() == SeverityWarning
}
