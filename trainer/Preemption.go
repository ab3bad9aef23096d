package trainer

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
)

// Preemption is set when the process is asked to save its resume state
// and stop, for example because the job scheduler is about to preempt
// it
type Preemption struct {
	requested atomic.Bool
}

// NewPreemption returns an unset Preemption
func NewPreemption() *Preemption {
	return &Preemption{}
}

// Signal requests that resume state be saved
func (p *Preemption) Signal() {
	p.requested.Store(true)
}

// SaveStateRequested returns whether Signal has been called
func (p *Preemption) SaveStateRequested() bool {
	return p.requested.Load()
}

// Notify calls Signal when the process receives one of sigs, until ctx
// is done or the returned function is called
func (p *Preemption) Notify(ctx context.Context, sigs ...os.Signal) func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		for {
			select {
			case <-ch:
				p.Signal()
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		cancel()
	}
}

// IsSlurmBatchJob returns whether the process runs as a non-interactive
// SLURM job
func IsSlurmBatchJob() bool {
	if _, ok := os.LookupEnv("SLURM_JOB_ID"); !ok {
		return false
	}
	name := os.Getenv("SLURM_JOB_NAME")
	return name != "" && name != "bash"
}
