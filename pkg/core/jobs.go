package core

import (
	"context"
	"sync/atomic"
	"time"
)

// Job is evaluated once per frame on the scheduler goroutine, in the order
// it was added.
type Job interface {
	Name() string
	ShouldFire(f *Frame) bool
	Run(ctx context.Context, f *Frame)
}

// BaseJob guards a job against re-entry.
type BaseJob struct {
	name string
	busy int32
}

func NewBaseJob(name string) BaseJob {
	return BaseJob{name: name}
}

func (b *BaseJob) Name() string { return b.name }

// TryLock marks the job busy. It reports false if it already was.
func (b *BaseJob) TryLock() bool {
	return atomic.CompareAndSwapInt32(&b.busy, 0, 1)
}

func (b *BaseJob) Unlock() { atomic.StoreInt32(&b.busy, 0) }

// Busy reports whether Run is in progress.
func (b *BaseJob) Busy() bool { return atomic.LoadInt32(&b.busy) == 1 }

// TimeJob runs action on its first frame and then whenever at least
// interval has passed since the previous run, measured in frame time.
type TimeJob struct {
	BaseJob
	interval time.Duration
	action   func(context.Context, *Frame)
	last     time.Time
	ran      bool
}

func NewTimeJob(name string, interval time.Duration, action func(context.Context, *Frame)) *TimeJob {
	return &TimeJob{
		BaseJob:  NewBaseJob(name),
		interval: interval,
		action:   action,
	}
}

func (j *TimeJob) ShouldFire(f *Frame) bool {
	if j.Busy() {
		return false
	}
	return !j.ran || f.Now.Sub(j.last) >= j.interval
}

func (j *TimeJob) Run(ctx context.Context, f *Frame) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.last, j.ran = f.Now, true
	j.action(ctx, f)
}
