package executor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubmitRunsTasksInOrder(t *testing.T) {
	e := New(8)
	defer e.Stop()

	var order []int
	done := make(chan struct{})

	for i := 0; i < 5; i++ {
		i := i
		e.Submit(func(ctx context.Context) {
			order = append(order, i)
			if i == 4 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tasks did not complete in time")
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestStopPreventsFurtherSubmission(t *testing.T) {
	e := New(4)
	var ran int32

	e.Stop()
	e.Submit(func(ctx context.Context) { atomic.AddInt32(&ran, 1) })

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}
