package main

import (
	"github.com/hexworld/engine/internal/observer"
)

// cellState follows the last frame seen for a chunk. Hidden chunks are
// built but popped out.
type cellState uint8

const (
	cellUnknown cellState = iota
	cellHidden
	cellVisible
	cellFailed
	cellOutdated
)

type cell struct {
	state cellState
	water bool
	trees int
}

// board mirrors chunk residency from observer frames.
type board struct {
	cells  map[[2]int32]*cell
	frames uint64
	pops   uint64

	// view origin in chunk coordinates; follow keeps it on the visible set
	originX, originY int32
	follow           bool
}

func newBoard() *board {
	return &board{cells: make(map[[2]int32]*cell), follow: true}
}

func (b *board) get(k [2]int32) *cell {
	c, ok := b.cells[k]
	if !ok {
		c = &cell{}
		b.cells[k] = c
	}
	return c
}

func (b *board) apply(m observer.Message) {
	b.frames++
	switch m.Type {
	case "pop_in":
		c := b.get(m.Chunk)
		c.state = cellVisible
		c.water = m.HasWater
		c.trees = m.Trees
		b.pops++
	case "pop_out":
		b.get(m.Chunk).state = cellHidden
	case "streamed":
		c := b.get(m.Chunk)
		c.water = m.HasWater
		if c.state == cellUnknown || c.state == cellFailed {
			c.state = cellHidden
		}
	case "failed":
		b.get(m.Chunk).state = cellFailed
	case "outdated":
		if c, ok := b.cells[m.Chunk]; ok && c.state == cellVisible {
			c.state = cellOutdated
		}
	case "nuked":
		delete(b.cells, m.Chunk)
	}
}

// visibleCenter averages the visible chunks. ok is false when none are.
func (b *board) visibleCenter() (x, y int32, ok bool) {
	var sx, sy, n int64
	for k, c := range b.cells {
		if c.state == cellVisible || c.state == cellOutdated {
			sx += int64(k[0])
			sy += int64(k[1])
			n++
		}
	}
	if n == 0 {
		return 0, 0, false
	}
	return int32(sx / n), int32(sy / n), true
}

func (b *board) counts() (visible, hidden, failed int) {
	for _, c := range b.cells {
		switch c.state {
		case cellVisible, cellOutdated:
			visible++
		case cellHidden:
			hidden++
		case cellFailed:
			failed++
		}
	}
	return
}

func (b *board) pan(dx, dy int32) {
	b.follow = false
	b.originX += dx
	b.originY += dy
}

func (b *board) recenter() {
	b.follow = true
	if x, y, ok := b.visibleCenter(); ok {
		b.originX, b.originY = x, y
	}
}
