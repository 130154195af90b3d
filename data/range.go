package data

import "fmt"

// ByteRange selects a byte window within an object.
// Start is inclusive; End is exclusive. A zero End means read-to-end.
type ByteRange struct {
	Start int64
	End   int64
}

// FullRange selects the entire object.
var FullRange = ByteRange{}

// IsFull reports whether the range selects the entire object.
func (r ByteRange) IsFull() bool {
	return r.Start == 0 && r.End == 0
}

// Unbounded reports whether the range reads to the end of the object.
func (r ByteRange) Unbounded() bool {
	return r.End == 0
}

// Length returns the number of selected bytes, or -1 when unbounded.
func (r ByteRange) Length() int64 {
	if r.Unbounded() {
		return -1
	}
	return r.End - r.Start
}

// Validate checks the range for internal consistency.
func (r ByteRange) Validate() error {
	if r.Start < 0 {
		return NewError(KindRangeNotSatisfiable, OpRead, "").
			WithCause(fmt.Errorf("negative range start %d", r.Start))
	}
	if !r.Unbounded() && r.End <= r.Start {
		return NewError(KindRangeNotSatisfiable, OpRead, "").
			WithCause(fmt.Errorf("range end %d not after start %d", r.End, r.Start))
	}

	return nil
}

func (r ByteRange) String() string {
	if r.Unbounded() {
		return fmt.Sprintf("[%d..]", r.Start)
	}
	return fmt.Sprintf("[%d..%d)", r.Start, r.End)
}
