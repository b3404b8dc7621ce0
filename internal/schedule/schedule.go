// Package schedule evaluates the business-hours gate: whether the IVR is
// open at the moment a call arrives, per the availability schedule and the
// unavailability date list from the flow configuration.
package schedule

import (
	"time"

	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/clock"
	"github.com/automax/ivrflow/internal/domain"
)

// dateLayout is the blackout-date form, e.g. "12252026" for Dec 25 2026.
const dateLayout = "01022006"

// timeLayout is the window boundary form, e.g. "9:00AM".
const timeLayout = "3:04PM"

// weekdayKeys maps time.Weekday onto the schedule's SUN..SAT keys.
var weekdayKeys = [7]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

// Calendar is the slice of the config registry the gate consults. The
// registry's Snapshot satisfies it.
type Calendar interface {
	IsUnavailableDate(date string) bool
	HasSchedule() bool
	ScheduleWindow(weekday string) (domain.TimeWindow, bool)
}

// Gate decides whether the IVR accepts calls right now.
type Gate struct {
	clk    clock.Clock
	logger *zap.Logger
}

// NewGate creates a gate. A nil clock defaults to the real one.
func NewGate(clk clock.Clock, logger *zap.Logger) *Gate {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{clk: clk, logger: logger}
}

// Open reports whether calls are accepted under the given calendar. With no
// schedule configured at all, the gate stays open; otherwise the current
// date must not be blacked out and the current weekday's window must contain
// the current time.
func (g *Gate) Open(cal Calendar) bool {
	now := g.clk.Now()

	if cal.IsUnavailableDate(now.Format(dateLayout)) {
		g.logger.Info("gate closed: blackout date", zap.String("date", now.Format(dateLayout)))
		return false
	}

	if !cal.HasSchedule() {
		return true
	}

	key := weekdayKeys[now.Weekday()]
	window, ok := cal.ScheduleWindow(key)
	if !ok || window.From == "" || window.To == "" {
		g.logger.Info("gate closed: no window for weekday", zap.String("weekday", key))
		return false
	}

	from, err := time.Parse(timeLayout, window.From)
	if err != nil {
		g.logger.Warn("malformed schedule window", zap.String("from", window.From), zap.Error(err))
		return false
	}
	to, err := time.Parse(timeLayout, window.To)
	if err != nil {
		g.logger.Warn("malformed schedule window", zap.String("to", window.To), zap.Error(err))
		return false
	}

	minutes := now.Hour()*60 + now.Minute()
	fromMin := from.Hour()*60 + from.Minute()
	toMin := to.Hour()*60 + to.Minute()

	open := minutes >= fromMin && minutes < toMin
	if !open {
		g.logger.Info("gate closed: outside window",
			zap.String("weekday", key),
			zap.String("from", window.From),
			zap.String("to", window.To),
		)
	}
	return open
}
