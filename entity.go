package tilegrid

import "fmt"

// EntityRef is a handle into an entity store: a slot index plus the
// generation the slot had when the entity was created. Destroying an entity
// bumps its slot's generation, so refs held past destruction stop resolving
// even after the slot is recycled.
type EntityRef struct {
	Index      uint32
	Generation uint32
}

// EntityFromBits unpacks a ref produced by Bits.
func EntityFromBits(bits uint64) EntityRef {
	return EntityRef{Index: uint32(bits), Generation: uint32(bits >> 32)}
}

// Bits packs the ref as generation<<32 | index.
func (e EntityRef) Bits() uint64 {
	return uint64(e.Generation)<<32 | uint64(e.Index)
}

func (e EntityRef) String() string {
	return fmt.Sprintf("%d#%d", e.Index, e.Generation)
}

// entityPool allocates generational slots with a LIFO free list.
type entityPool struct {
	generations []uint32
	alive       []bool
	freeList    []uint32
}

func newEntityPool() *entityPool {
	return &entityPool{
		generations: make([]uint32, 0, 256),
		alive:       make([]bool, 0, 256),
		freeList:    make([]uint32, 0, 64),
	}
}

func (p *entityPool) create() EntityRef {
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		p.alive[idx] = true
		return EntityRef{Index: idx, Generation: p.generations[idx]}
	}
	idx := uint32(len(p.generations))
	p.generations = append(p.generations, 0)
	p.alive = append(p.alive, true)
	return EntityRef{Index: idx}
}

func (p *entityPool) isAlive(e EntityRef) bool {
	if int(e.Index) >= len(p.generations) {
		return false
	}
	return p.alive[e.Index] && p.generations[e.Index] == e.Generation
}

// current returns the live ref occupying slot, if any.
func (p *entityPool) current(slot uint32) (EntityRef, bool) {
	if int(slot) >= len(p.generations) || !p.alive[slot] {
		return EntityRef{}, false
	}
	return EntityRef{Index: slot, Generation: p.generations[slot]}, true
}

func (p *entityPool) destroy(e EntityRef) bool {
	if !p.isAlive(e) {
		return false
	}
	p.generations[e.Index]++
	p.alive[e.Index] = false
	p.freeList = append(p.freeList, e.Index)
	return true
}

func (p *entityPool) slots() int {
	return len(p.generations)
}
