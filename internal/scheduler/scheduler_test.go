package scheduler

import (
	"testing"
)

func TestSchedulerStartStop(t *testing.T) {
	sched := New(60, func() {})

	if err := sched.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !sched.IsRunning() {
		t.Fatalf("scheduler should be running after Start")
	}
	if sched.GetNextRun().IsZero() {
		t.Fatalf("running scheduler should report a next run time")
	}
	if err := sched.Start(); err == nil {
		t.Fatalf("second Start should fail while running")
	}
	if err := sched.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if sched.IsRunning() {
		t.Fatalf("scheduler should not be running after Stop")
	}
	if !sched.GetNextRun().IsZero() {
		t.Fatalf("stopped scheduler should report no next run")
	}
}

func TestSchedulerRunOnce(t *testing.T) {
	ran := 0
	sched := New(60, func() { ran++ })

	sched.RunOnce()
	sched.Wait()

	if ran != 1 {
		t.Fatalf("expected the job to run once, ran %d times", ran)
	}
}
