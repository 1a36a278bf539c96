package main

import (
	"testing"

	"github.com/hexworld/engine/internal/observer"
)

func TestBoardFollowsFrames(t *testing.T) {
	b := newBoard()
	b.apply(observer.Message{Type: "streamed", Chunk: [2]int32{1, 1}})
	b.apply(observer.Message{Type: "pop_in", Chunk: [2]int32{1, 1}, Trees: 2})
	b.apply(observer.Message{Type: "pop_in", Chunk: [2]int32{3, 1}, HasWater: true})
	b.apply(observer.Message{Type: "failed", Chunk: [2]int32{9, 9}})

	if v, h, f := b.counts(); v != 2 || h != 0 || f != 1 {
		t.Fatalf("counts = %d %d %d", v, h, f)
	}
	if x, y, ok := b.visibleCenter(); !ok || x != 2 || y != 1 {
		t.Fatalf("center = %d,%d,%v", x, y, ok)
	}

	b.apply(observer.Message{Type: "outdated", Chunk: [2]int32{1, 1}})
	b.apply(observer.Message{Type: "pop_out", Chunk: [2]int32{3, 1}})
	if b.cells[[2]int32{1, 1}].state != cellOutdated || b.cells[[2]int32{3, 1}].state != cellHidden {
		t.Fatalf("states after outdated/pop_out: %+v", b.cells)
	}

	b.apply(observer.Message{Type: "nuked", Chunk: [2]int32{3, 1}})
	if _, ok := b.cells[[2]int32{3, 1}]; ok {
		t.Fatalf("nuked chunk still on the board")
	}
	if b.pops != 2 || b.frames != 7 {
		t.Fatalf("pops=%d frames=%d", b.pops, b.frames)
	}
}

func TestBoardPanStopsFollowing(t *testing.T) {
	b := newBoard()
	b.apply(observer.Message{Type: "pop_in", Chunk: [2]int32{4, -2}})
	b.pan(1, 0)
	if b.follow || b.originX != 1 {
		t.Fatalf("pan: follow=%v origin=%d", b.follow, b.originX)
	}
	b.recenter()
	if !b.follow || b.originX != 4 || b.originY != -2 {
		t.Fatalf("recenter: follow=%v origin=(%d,%d)", b.follow, b.originX, b.originY)
	}
}
