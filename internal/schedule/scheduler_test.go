package schedule

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type blockingJob struct {
	mu      sync.Mutex
	runs    int
	release chan struct{}
	started chan struct{}
}

func (b *blockingJob) Name() string { return "blocking" }

func (b *blockingJob) Run(ctx context.Context) error {
	b.mu.Lock()
	b.runs++
	b.mu.Unlock()
	close(b.started)
	<-b.release
	return nil
}

func TestAddJobRejectsBadSpec(t *testing.T) {
	s := NewCronScheduler()
	require.Error(t, s.AddJob(&blockingJob{}, "not a spec"))
	require.NoError(t, s.AddJob(&blockingJob{}, "0 3 * * *"))
	require.Len(t, s.entries, 1)
}

func TestWrapSkipsOverlappingRuns(t *testing.T) {
	s := NewCronScheduler()
	job := &blockingJob{release: make(chan struct{}), started: make(chan struct{})}
	run := s.wrap(job, "* * * * *")

	done := make(chan struct{})
	go func() {
		run()
		close(done)
	}()
	<-job.started
	run()
	close(job.release)
	<-done

	require.Equal(t, 1, job.runs)
}
