package perimeter

import (
	"perimeterd/internal/structures"
	"time"

	"go.uber.org/atomic"
)

const (
	DefaultSummonGrace = 10 * time.Second
	DefaultHomeGrace   = 15 * time.Second
)

// Graces holds the short windows after an internally authorized summon or
// disconnect during which the tripwire and watchdog stand down.
type Graces struct {
	summonUntil atomic.Time
	homeUntil   atomic.Time
	summon      time.Duration
	home        time.Duration
	now         func() time.Time
}

func NewGraces(conf *structures.Config) *Graces {
	g := &Graces{
		summon: conf.Watchdog.SummonGrace,
		home:   conf.Watchdog.HomeGrace,
		now:    time.Now,
	}
	if g.summon <= 0 {
		g.summon = DefaultSummonGrace
	}
	if g.home <= 0 {
		g.home = DefaultHomeGrace
	}
	return g
}

func (g *Graces) Open() {
	now := g.now()
	g.summonUntil.Store(now.Add(g.summon))
	g.homeUntil.Store(now.Add(g.home))
}

func (g *Graces) InSummonGrace() bool {
	return !g.now().After(g.summonUntil.Load())
}

func (g *Graces) InHomeGrace() bool {
	return !g.now().After(g.homeUntil.Load())
}
