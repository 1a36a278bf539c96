package handle

// Handle encodes a 32-bit slot index in the lower bits and a 32-bit generation
// in the upper bits. The generation increments on release so stale handles
// stop resolving. The zero Handle is never issued.
type Handle uint64

func New(index uint32, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

func (h Handle) Index() uint32      { return uint32(h) }
func (h Handle) Generation() uint32 { return uint32(h >> 32) }
func (h Handle) IsZero() bool       { return h == 0 }

// Pool hands out generational handles with a free list.
type Pool struct {
	generations []uint32
	freeList    []uint32
	nextIndex   uint32
	live        int
}

func NewPool() *Pool {
	return &Pool{
		generations: make([]uint32, 0, 256),
		freeList:    make([]uint32, 0, 64),
	}
}

func (p *Pool) Acquire() Handle {
	p.live++
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		return New(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	// generation starts at 1 so slot 0 never yields the zero handle
	p.generations = append(p.generations, 1)
	return New(idx, p.generations[idx])
}

func (p *Pool) Alive(h Handle) bool {
	idx := h.Index()
	if h.IsZero() || idx >= p.nextIndex {
		return false
	}
	return p.generations[idx] == h.Generation()
}

// Release frees the slot. Releasing a stale or zero handle is a no-op and
// reports false.
func (p *Pool) Release(h Handle) bool {
	if !p.Alive(h) {
		return false
	}
	idx := h.Index()
	p.generations[idx]++
	p.freeList = append(p.freeList, idx)
	p.live--
	return true
}

// Live is the number of handles acquired and not yet released.
func (p *Pool) Live() int { return p.live }
