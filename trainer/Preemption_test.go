package trainer_test

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/JelinR/habitat-lab/trainer"
)

func TestPreemption_Notify(t *testing.T) {
	p := trainer.NewPreemption()
	stop := p.Notify(context.Background(), syscall.SIGUSR1)
	defer stop()

	assert.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))
	assert.Eventually(t, p.SaveStateRequested, time.Second, time.Millisecond)
}
