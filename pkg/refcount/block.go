package refcount

// Block state bit layout in one uint64:
// [32-bit strong count][32-bit weak count]
// Strong references in the high 32 bits, weak references in the low 32 bits.
// Counters are plain (non-atomic): a block belongs to one goroutine at a time.

const (
	// MaxCount is the maximum value of either counter.
	MaxCount = 1<<32 - 1

	maskWeak    = uint64(MaxCount)
	strongShift = 32
)

// Block is the shared bookkeeping record of one target: the number of live
// strong holders and live weak holders. It never disposes anything itself,
// the handle that observes strong reaching zero does that.
type Block struct {
	state uint64
	freed bool
}

func pack(strong, weak int64) uint64 {
	return uint64(strong)<<strongShift | uint64(weak)
}

func unpack(state uint64) (strong, weak int64) {
	return int64(state >> strongShift), int64(state & maskWeak)
}

// reset puts the block into its initial state: one strong owner, no observers.
func (b *Block) reset() *Block {
	b.state = pack(1, 0)
	b.freed = false
	return b
}

func (b *Block) checkAlive(op string) {
	if b.freed {
		logicPanic(op, b, ErrUseAfterFree)
	}
}

// IncStrong registers one more strong owner.
func (b *Block) IncStrong() {
	b.checkAlive("inc strong")
	strong, weak := unpack(b.state)
	if strong >= MaxCount {
		logicPanic("inc strong", b, ErrOverflow)
	}
	b.state = pack(strong+1, weak)
}

// TryIncStrong registers a strong owner only if at least one is still alive.
// This is the promotion path of weak handles.
func (b *Block) TryIncStrong() bool {
	b.checkAlive("try inc strong")
	if strong, _ := unpack(b.state); strong == 0 {
		return false
	}
	b.IncStrong()
	return true
}

// DecStrong drops one strong owner and returns the remaining strong count.
// Panics with ErrStrongUnderflow when the count is already zero.
func (b *Block) DecStrong() int64 {
	b.checkAlive("dec strong")
	strong, weak := unpack(b.state)
	if strong == 0 {
		logicPanic("dec strong", b, ErrStrongUnderflow)
	}
	b.state = pack(strong-1, weak)
	return strong - 1
}

// IncWeak registers one more weak observer.
func (b *Block) IncWeak() {
	b.checkAlive("inc weak")
	strong, weak := unpack(b.state)
	if weak >= MaxCount {
		logicPanic("inc weak", b, ErrOverflow)
	}
	b.state = pack(strong, weak+1)
}

// DecWeak drops one weak observer and returns the remaining weak count.
// Panics with ErrWeakUnderflow when the count is already zero.
func (b *Block) DecWeak() int64 {
	b.checkAlive("dec weak")
	strong, weak := unpack(b.state)
	if weak == 0 {
		logicPanic("dec weak", b, ErrWeakUnderflow)
	}
	b.state = pack(strong, weak-1)
	return weak - 1
}

// Strong returns the number of live strong owners.
func (b *Block) Strong() int64 {
	strong, _ := unpack(b.state)
	return strong
}

// Weak returns the number of live weak observers.
func (b *Block) Weak() int64 {
	_, weak := unpack(b.state)
	return weak
}

// HasRefs reports whether any strong or weak handle still references the block.
func (b *Block) HasRefs() bool {
	return b.state != 0
}

// IsFreed reports whether the block was already returned to the pool.
func (b *Block) IsFreed() bool {
	return b.freed
}
