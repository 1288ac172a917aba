package detour

import "strings"

// Status is the result of a navigation mesh operation: one of Failure,
// Success or InProgress plus detail bits.
type Status uint32

const (
	Failure    Status = 1 << 31 // Operation failed.
	Success    Status = 1 << 30 // Operation succeeded.
	InProgress Status = 1 << 29 // Operation still in progress.

	StatusDetailMask Status = 0x0ffffff
	WrongMagic       Status = 1 << 0 // Input data is not recognized.
	WrongVersion     Status = 1 << 1 // Input data is in wrong version.
	OutOfMemory      Status = 1 << 2 // Operation ran out of memory.
	InvalidParam     Status = 1 << 3 // An input parameter was invalid.
	BufferTooSmall   Status = 1 << 4 // Result buffer for the query was too small to store all results.
	OutOfNodes       Status = 1 << 5 // Query ran out of nodes during search.
	PartialResult    Status = 1 << 6 // Query did not reach the end location, returning best guess.
	AlreadyOccupied  Status = 1 << 7 // A tile has already been assigned to the given x,y coordinate
)

// Succeeded returns true if status is success.
func (s Status) Succeeded() bool { return s&Success != 0 }

// Failed returns true if status is failure.
func (s Status) Failed() bool { return s&Failure != 0 }

// InProgress returns true if status is in progress.
func (s Status) InProgress() bool { return s&InProgress != 0 }

// Detail returns true if the specified detail is set.
func (s Status) Detail(detail Status) bool { return s&detail != 0 }

var statusNames = []struct {
	bit  Status
	name string
}{
	{Failure, "failure"},
	{Success, "success"},
	{InProgress, "in progress"},
	{WrongMagic, "wrong magic"},
	{WrongVersion, "wrong version"},
	{OutOfMemory, "out of memory"},
	{InvalidParam, "invalid param"},
	{BufferTooSmall, "buffer too small"},
	{OutOfNodes, "out of nodes"},
	{PartialResult, "partial result"},
	{AlreadyOccupied, "already occupied"},
}

func (s Status) String() string {
	var parts []string
	for _, n := range statusNames {
		if s&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
