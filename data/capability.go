package data

// Operation identifies one accessor operation dispatched through an operator.
type Operation string

const (
	OpStat    Operation = "stat"
	OpRead    Operation = "read"
	OpWrite   Operation = "write"
	OpDelete  Operation = "delete"
	OpList    Operation = "list"
	OpPresign Operation = "presign"
	OpCopy    Operation = "copy"
	OpRename  Operation = "rename"
)

// Capability describes which operations a backend supports and its
// operational limits. It is fixed at construction; layers may narrow
// a capability when queried but never widen one.
type Capability struct {
	Stat   bool
	Read   bool
	Write  bool
	Delete bool
	List   bool

	// ListContinuation marks paginated listing restartable
	// through an opaque continuation token.
	ListContinuation bool

	Presign bool
	Copy    bool
	Rename  bool

	// Multipart marks writes of unknown size as streamable without
	// the adapter buffering the full payload.
	Multipart bool

	// MaxWriteSize limits a single write in bytes. Zero means unlimited.
	MaxWriteSize int64
}

// Supports reports whether the given operation is advertised.
func (c Capability) Supports(op Operation) bool {
	switch op {
	case OpStat:
		return c.Stat
	case OpRead:
		return c.Read
	case OpWrite:
		return c.Write
	case OpDelete:
		return c.Delete
	case OpList:
		return c.List
	case OpPresign:
		return c.Presign
	case OpCopy:
		return c.Copy
	case OpRename:
		return c.Rename
	default:
		return false
	}
}
