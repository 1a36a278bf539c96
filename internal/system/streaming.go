package system

import (
	"time"

	coresys "github.com/hexworld/engine/internal/core/system"
	"github.com/hexworld/engine/internal/stream"
)

// StreamingSystem 每個 tick 讀取相機並執行一次串流排程。
// Phase 2（Stream）。
type StreamingSystem struct {
	grid   *stream.Grid
	camera Camera
}

func NewStreamingSystem(grid *stream.Grid, camera Camera) *StreamingSystem {
	return &StreamingSystem{grid: grid, camera: camera}
}

func (s *StreamingSystem) Phase() coresys.Phase { return coresys.PhaseStream }

func (s *StreamingSystem) Update(_ time.Duration) {
	center, view, velocity := s.camera.Step()
	s.grid.UpdateStreaming(center, view, velocity)
}

// FinalizeSystem 在主執行緒收回已完成的建置工作並呼叫 Finalize。
// 必須早於 StreamingSystem，新完成的區塊才能在同一 tick 內 pop-in。
// Phase 1（Finalize）。
type FinalizeSystem struct {
	grid  *stream.Grid
	total uint64
}

func NewFinalizeSystem(grid *stream.Grid) *FinalizeSystem {
	return &FinalizeSystem{grid: grid}
}

func (s *FinalizeSystem) Phase() coresys.Phase { return coresys.PhaseFinalize }

func (s *FinalizeSystem) Update(_ time.Duration) {
	s.total += uint64(s.grid.Drain())
}

// Finalized 累計完成的工作數。
func (s *FinalizeSystem) Finalized() uint64 { return s.total }
