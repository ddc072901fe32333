package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ironsheep/image-merge-mcp/internal/logging"
)

// Stage is a step of the merge pipeline.
type Stage int

const (
	StageIdle Stage = iota
	StageDecoding
	StageNormalizing
	StageDetectingOverlap
	StageScaling
	StageCompositing
	StageEncoding
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageDecoding:
		return "decoding"
	case StageNormalizing:
		return "normalizing"
	case StageDetectingOverlap:
		return "detecting-overlap"
	case StageScaling:
		return "scaling"
	case StageCompositing:
		return "compositing"
	case StageEncoding:
		return "encoding"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Terminal reports whether no further transitions are possible.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// canAdvance reports whether a run in stage s may move to next. Stages
// only move forward; DetectingOverlap may be skipped.
func (s Stage) canAdvance(next Stage) bool {
	if s.Terminal() {
		return false
	}
	if next == StageFailed {
		return true
	}
	if next == s+1 {
		return true
	}
	return s == StageNormalizing && next == StageScaling
}

var runCounter atomic.Uint64

// run tracks one Merge call through the pipeline.
type run struct {
	id      uint64
	stage   Stage
	started time.Time
	entered time.Time
	history []Stage
}

func newRun(inputs int, opts Options) *run {
	now := time.Now()
	r := &run{
		id:      runCounter.Add(1),
		stage:   StageIdle,
		started: now,
		entered: now,
		history: []Stage{StageIdle},
	}
	logging.Debug("merge %d: %d inputs, direction=%s background=%s sensitivity=%d",
		r.id, inputs, opts.Direction, opts.Background, opts.OverlapSensitivity)
	return r
}

// advance moves the run to next. An illegal transition is a programming
// error and panics; Merge converts the panic into an internal error.
func (r *run) advance(next Stage) {
	if !r.stage.canAdvance(next) {
		panic(fmt.Sprintf("merge %d: illegal stage transition %s -> %s", r.id, r.stage, next))
	}
	now := time.Now()
	logging.Debug("merge %d: %s -> %s (%s in %s)", r.id, r.stage, next, now.Sub(r.entered), r.stage)
	r.stage = next
	r.entered = now
	r.history = append(r.history, next)
}

// fail records the current stage on err and moves the run to Failed.
func (r *run) fail(err error) *Error {
	e := AsError(err)
	e.Stage = r.stage
	if !r.stage.Terminal() {
		r.stage = StageFailed
		r.history = append(r.history, StageFailed)
	}
	logging.Warn("merge %d failed in %s after %s: %v", r.id, e.Stage, time.Since(r.started), e)
	return e
}
