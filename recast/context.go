package recast

import (
	"time"

	"go.uber.org/zap"
)

type TimerLabel int

const (
	TimerTotal TimerLabel = iota
	TimerRasterizeTriangles
	TimerBuildCompactHeightfield
	TimerBuildContours
	TimerBuildContoursTrace
	TimerBuildContoursSimplify
	TimerFilterBorder
	TimerFilterWalkable
	TimerFilterLowObstacles
	TimerMedianArea
	TimerErodeArea
	TimerMarkBoxArea
	TimerMarkCylinderArea
	TimerMarkConvexPolyArea
	TimerBuildDistanceField
	TimerBuildDistanceFieldDist
	TimerBuildDistanceFieldBlur
	TimerBuildRegions
	TimerBuildRegionsWatershed
	TimerBuildRegionsExpand
	TimerBuildRegionsFlood
	TimerBuildRegionsFilter
	TimerBuildPolyMesh
	TimerBuildPolyMeshDetail
	TimerMaxTimers
)

var timerNames = [TimerMaxTimers]string{
	"Total",
	"Rasterize",
	"Build Compact",
	"Build Contours",
	"Trace",
	"Simplify",
	"Filter Border",
	"Filter Walkable",
	"Filter Low Obstacles",
	"Median Area",
	"Erode Area",
	"Mark Box Area",
	"Mark Cylinder Area",
	"Mark Convex Area",
	"Build Distance Field",
	"Distance",
	"Blur",
	"Build Regions",
	"Watershed",
	"Expand",
	"Find Basins",
	"Filter",
	"Build Polymesh",
	"Build Polymesh Detail",
}

func (l TimerLabel) String() string {
	if l < 0 || l >= TimerMaxTimers {
		return "Unknown"
	}
	return timerNames[l]
}

// Context carries the logger and phase timers through a build. A nil
// *Context is valid and discards everything.
type Context struct {
	log    *zap.Logger
	start  [TimerMaxTimers]time.Time
	accum  [TimerMaxTimers]time.Duration
	timers bool
}

func NewContext(log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{log: log, timers: true}
}

func (c *Context) Logger() *zap.Logger {
	if c == nil {
		return zap.NewNop()
	}
	return c.log
}

func (c *Context) Warn(msg string, fields ...zap.Field) {
	if c == nil {
		return
	}
	c.log.Warn(msg, fields...)
}

func (c *Context) Debug(msg string, fields ...zap.Field) {
	if c == nil {
		return
	}
	c.log.Debug(msg, fields...)
}

func (c *Context) EnableTimers(on bool) {
	if c == nil {
		return
	}
	c.timers = on
}

func (c *Context) ResetTimers() {
	if c == nil {
		return
	}
	c.accum = [TimerMaxTimers]time.Duration{}
}

func (c *Context) StartTimer(label TimerLabel) {
	if c == nil || !c.timers {
		return
	}
	c.start[label] = time.Now()
}

func (c *Context) StopTimer(label TimerLabel) {
	if c == nil || !c.timers {
		return
	}
	c.accum[label] += time.Since(c.start[label])
}

// AccumulatedTime returns the total time spent in label, or -1 when timers are off.
func (c *Context) AccumulatedTime(label TimerLabel) time.Duration {
	if c == nil || !c.timers {
		return -1
	}
	return c.accum[label]
}
