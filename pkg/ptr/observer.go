package ptr

// Observer receives lifecycle events of blocks and targets.
// Implementations must be safe for concurrent use: independent handle graphs
// may live on different goroutines.
type Observer interface {
	BlockAllocated(kind Kind)
	BlockFreed(kind Kind)
	TargetDisposed(kind Kind, values int)
	Promoted(ok bool)
}

type nopObserver struct{}

func (nopObserver) BlockAllocated(Kind)      {}
func (nopObserver) BlockFreed(Kind)          {}
func (nopObserver) TargetDisposed(Kind, int) {}
func (nopObserver) Promoted(bool)            {}

var observer Observer = nopObserver{}

// SetObserver installs o as the package-wide observer and returns a function
// restoring the previous one. Call it during start-up, before handles are created.
func SetObserver(o Observer) (restore func()) {
	prev := observer
	if o == nil {
		o = nopObserver{}
	}
	observer = o
	return func() { observer = prev }
}
