package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/hexworld/engine/internal/chunk"
	"github.com/hexworld/engine/internal/core/event"
	coresys "github.com/hexworld/engine/internal/core/system"
)

// NotifySystem 在 tick 開頭交換事件緩衝並派送上一個 tick 的區塊事件。
// 渲染端與觀察者只透過這裡收到通知，從不在排程途中被直接呼叫。
// Phase 0（Dispatch）。
type NotifySystem struct {
	bus *event.Bus
	log *zap.Logger

	poppedIn  uint64
	poppedOut uint64
	nuked     uint64
	failed    uint64
}

func NewNotifySystem(bus *event.Bus, log *zap.Logger) *NotifySystem {
	s := &NotifySystem{bus: bus, log: log}
	event.Subscribe(bus, func(chunk.PoppedIn) { s.poppedIn++ })
	event.Subscribe(bus, func(chunk.PoppedOut) { s.poppedOut++ })
	event.Subscribe(bus, func(chunk.Nuked) { s.nuked++ })
	event.Subscribe(bus, func(e chunk.Failed) {
		s.failed++
		if e.Failures >= 3 {
			s.log.Warn("區塊連續建置失敗", zap.Stringer("chunk", e.Index), zap.Int("次數", e.Failures))
		}
	})
	return s
}

func (s *NotifySystem) Phase() coresys.Phase { return coresys.PhaseDispatch }

func (s *NotifySystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

// Counts 已派送的 pop-in、pop-out、移除、失敗事件數。
func (s *NotifySystem) Counts() (poppedIn, poppedOut, nuked, failed uint64) {
	return s.poppedIn, s.poppedOut, s.nuked, s.failed
}
