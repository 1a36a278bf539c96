package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/hexworld/engine/internal/core/system"
	"github.com/hexworld/engine/internal/stream"
)

// StatsPublisher receives the latest stats snapshot, e.g. the observer server.
type StatsPublisher interface {
	PublishStats(v any)
}

// StatsSystem 定期記錄串流統計，並重置建置耗時高水位。
// Phase 4（Stats）。
type StatsSystem struct {
	grid      *stream.Grid
	pub       StatsPublisher
	log       *zap.Logger
	interval  int
	tickCount int
	last      stream.Stats
}

func NewStatsSystem(grid *stream.Grid, pub StatsPublisher, log *zap.Logger, intervalTicks int) *StatsSystem {
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	return &StatsSystem{grid: grid, pub: pub, log: log, interval: intervalTicks}
}

func (s *StatsSystem) Phase() coresys.Phase { return coresys.PhaseStats }

func (s *StatsSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0

	st := s.grid.Stats()
	s.last = st
	if s.pub != nil {
		s.pub.PublishStats(st)
	}
	s.log.Debug("串流統計",
		zap.Int("區塊", st.Chunks),
		zap.Int("可見", st.Visible),
		zap.Int("佇列", st.Queued),
		zap.Int("建置中", st.InFlight),
		zap.Int("地塊", st.Tiles),
		zap.Float64("最高耗時ms", st.HighLoadMs),
	)
	s.grid.ClearLoadTime()
}

// Last 最近一次取樣的統計。
func (s *StatsSystem) Last() stream.Stats { return s.last }
