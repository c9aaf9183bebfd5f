package vm

type Status int

const (
	Running Status = iota
	Halted
	Faulted
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Faulted:
		return "faulted"
	}
	return "unknown"
}

// Terminal reports whether no further steps can be taken.
func (s Status) Terminal() bool {
	return s == Halted || s == Faulted
}

// Result is a snapshot of a VM. Fault is set only when Status is Faulted.
type Result struct {
	Status  Status
	Cursor  int
	Steps   uint64
	Unstack []int64
	Fault   *Fault
}
