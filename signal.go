package kyanite

import (
	"os"
	"os/signal"
	"sync/atomic"
)

// A Drain turns interrupts into a graceful-shutdown flag. The signal
// handler is the sole writer; the reader loop polls Draining before
// each record. A nil Drain never drains, which keeps tests and embedded
// uses free of signal plumbing.
type Drain struct {
	draining atomic.Bool
}

// Install registers the process-wide interrupt handler. The first
// interrupt sets the draining flag so intake stops at the next record
// boundary while in-flight children finish. A second interrupt exits
// the process immediately with status 130; running children are left to
// the operating system.
func (d *Drain) Install() {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt)
	go func() {
		<-ch
		d.draining.Store(true)
		<-ch
		os.Exit(130)
	}()
}

// Draining reports whether an interrupt has been received.
func (d *Drain) Draining() bool {
	return d != nil && d.draining.Load()
}
