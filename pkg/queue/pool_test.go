package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClaimer struct {
	mu       sync.Mutex
	claimed  map[int64]bool
	canceled map[int64]bool
	touches  int32
}

func newFakeClaimer() *fakeClaimer {
	return &fakeClaimer{claimed: map[int64]bool{}, canceled: map[int64]bool{}}
}

func (f *fakeClaimer) Claim(ctx context.Context, id int64) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.canceled[id] {
		return false, true, nil
	}
	if f.claimed[id] {
		return false, false, nil
	}
	f.claimed[id] = true
	return true, false, nil
}

func (f *fakeClaimer) Touch(ctx context.Context, id int64) error {
	atomic.AddInt32(&f.touches, 1)
	return nil
}

type fakeDequeuer struct {
	tasks chan *Task
}

func newFakeDequeuer(ids ...int64) *fakeDequeuer {
	ch := make(chan *Task, len(ids))
	for _, id := range ids {
		ch <- &Task{ScenarioRunID: id}
	}
	return &fakeDequeuer{tasks: ch}
}

func (f *fakeDequeuer) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	select {
	case t := <-f.tasks:
		return t, nil
	case <-time.After(timeout):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type fakeRunner struct {
	mu  sync.Mutex
	ran []int64
	err error
}

func (f *fakeRunner) Run(ctx context.Context, scenarioRunID int64) error {
	f.mu.Lock()
	f.ran = append(f.ran, scenarioRunID)
	f.mu.Unlock()
	return f.err
}

func TestPool_ClaimsAndRunsDequeuedTask(t *testing.T) {
	dq := newFakeDequeuer(100)
	claims := newFakeClaimer()
	runner := &fakeRunner{}

	pool := NewPool("test-pod", Config{WorkerCount: 1, DequeueTimeout: 20 * time.Millisecond, HeartbeatInterval: time.Hour}, runner, claims, dq, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	pool.Start(ctx)

	require.Eventually(t, func() bool {
		runner.mu.Lock()
		defer runner.mu.Unlock()
		return len(runner.ran) == 1
	}, time.Second, 10*time.Millisecond)

	pool.Stop()
	assert.Equal(t, []int64{100}, runner.ran)
}

func TestPool_SkipsAlreadyClaimedTask(t *testing.T) {
	dq := newFakeDequeuer(1)
	claims := newFakeClaimer()
	claims.claimed[1] = true
	runner := &fakeRunner{}

	pool := NewPool("test-pod", Config{WorkerCount: 1, DequeueTimeout: 10 * time.Millisecond, HeartbeatInterval: time.Hour}, runner, claims, dq, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	pool.Start(ctx)
	time.Sleep(100 * time.Millisecond)
	pool.Stop()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Empty(t, runner.ran)
}

func TestPool_SkipsTaskCanceledBeforeClaim(t *testing.T) {
	dq := newFakeDequeuer(2)
	claims := newFakeClaimer()
	claims.canceled[2] = true
	runner := &fakeRunner{}

	pool := NewPool("test-pod", Config{WorkerCount: 1, DequeueTimeout: 10 * time.Millisecond, HeartbeatInterval: time.Hour}, runner, claims, dq, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	pool.Start(ctx)
	time.Sleep(100 * time.Millisecond)
	pool.Stop()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Empty(t, runner.ran)
}

func TestPool_CancelInterruptsActiveRun(t *testing.T) {
	dq := newFakeDequeuer(7)
	claims := newFakeClaimer()
	started := make(chan struct{})
	runner := &blockingRunner{started: started}

	pool := NewPool("test-pod", Config{WorkerCount: 1, DequeueTimeout: 10 * time.Millisecond, HeartbeatInterval: time.Hour}, runner, claims, dq, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	pool.Start(ctx)

	<-started
	require.Eventually(t, func() bool { return pool.Cancel(7) }, time.Second, 10*time.Millisecond)
	pool.Stop()
	assert.True(t, runner.sawCancel())
}

type blockingRunner struct {
	started chan struct{}
	mu      sync.Mutex
	cancel  bool
}

func (b *blockingRunner) Run(ctx context.Context, scenarioRunID int64) error {
	close(b.started)
	<-ctx.Done()
	b.mu.Lock()
	b.cancel = errors.Is(ctx.Err(), context.Canceled)
	b.mu.Unlock()
	return ctx.Err()
}

func (b *blockingRunner) sawCancel() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancel
}

func TestPool_HeartbeatTouchesClaimPeriodically(t *testing.T) {
	dq := newFakeDequeuer(42)
	claims := newFakeClaimer()
	started := make(chan struct{})
	runner := &blockingRunner{started: started}

	pool := NewPool("test-pod", Config{WorkerCount: 1, DequeueTimeout: 10 * time.Millisecond, HeartbeatInterval: 20 * time.Millisecond}, runner, claims, dq, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	pool.Start(ctx)

	<-started
	require.Eventually(t, func() bool { return atomic.LoadInt32(&claims.touches) >= 2 }, time.Second, 10*time.Millisecond)
	pool.Cancel(42)
	pool.Stop()
}
