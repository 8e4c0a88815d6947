package topology

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNoBlocks is returned when the wireframe contains no closed block.
	ErrNoBlocks = errors.New("topology: no blocks found")
	// ErrIndexOutOfRange is returned when an edge names a missing vertex.
	ErrIndexOutOfRange = errors.New("topology: vertex index out of range")
	// ErrInconsistent is returned when a face is claimed by more than two blocks.
	ErrInconsistent = errors.New("topology: inconsistent face cross-reference")
)

// TopologyError carries the extraction log alongside the failure cause.
type TopologyError struct {
	Err error
	Log []string
}

func (e *TopologyError) Error() string {
	if len(e.Log) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v (%d log entries: %s)", e.Err, len(e.Log), strings.Join(e.Log, "; "))
}

func (e *TopologyError) Unwrap() error { return e.Err }
