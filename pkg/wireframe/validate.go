package wireframe

import "fmt"

// ValidationSeverity indicates whether a finding blocks extraction or is
// merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks extraction
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding. Edge is -1 for
// vertex-level findings.
type ValidationError struct {
	Edge     int
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.Edge < 0 {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] edge %d: %s", e.Severity, e.Edge, e.Message)
}

// Validate runs the structural checks and returns every finding. An empty
// slice means the wireframe is well formed. Validate never mutates w.
func Validate(w *Wireframe) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateIndices(w)...)
	errs = append(errs, validateSelfLoops(w)...)
	errs = append(errs, validateDuplicates(w)...)
	errs = append(errs, validateExcluded(w)...)
	errs = append(errs, validateIsolated(w)...)
	return errs
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

func validateIndices(w *Wireframe) []ValidationError {
	var errs []ValidationError
	n := len(w.Vertices)
	for i, e := range w.Edges {
		for _, v := range e {
			if v < 0 || v >= n {
				errs = append(errs, ValidationError{
					Edge:     i,
					Message:  fmt.Sprintf("vertex index %d out of range [0,%d)", v, n),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

func validateSelfLoops(w *Wireframe) []ValidationError {
	var errs []ValidationError
	for i, e := range w.Edges {
		if e[0] == e[1] {
			errs = append(errs, ValidationError{
				Edge:     i,
				Message:  fmt.Sprintf("self-loop on vertex %d", e[0]),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

func validateDuplicates(w *Wireframe) []ValidationError {
	var errs []ValidationError
	seen := make(map[[2]int]int)
	for i, e := range w.Edges {
		key := e
		if key[0] > key[1] {
			key[0], key[1] = key[1], key[0]
		}
		if first, ok := seen[key]; ok {
			errs = append(errs, ValidationError{
				Edge:     i,
				Message:  fmt.Sprintf("duplicates edge %d (%d-%d)", first, key[0], key[1]),
				Severity: SeverityWarning,
			})
			continue
		}
		seen[key] = i
	}
	return errs
}

func validateExcluded(w *Wireframe) []ValidationError {
	var errs []ValidationError
	for _, v := range w.Excluded {
		if v < 0 || v >= len(w.Vertices) {
			errs = append(errs, ValidationError{
				Edge:     -1,
				Message:  fmt.Sprintf("excluded vertex %d does not exist", v),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

func validateIsolated(w *Wireframe) []ValidationError {
	used := make([]bool, len(w.Vertices))
	for _, e := range w.Edges {
		for _, v := range e {
			if v >= 0 && v < len(used) {
				used[v] = true
			}
		}
	}
	var errs []ValidationError
	for v, ok := range used {
		if !ok {
			errs = append(errs, ValidationError{
				Edge:     -1,
				Message:  fmt.Sprintf("vertex %d has no edges", v),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
