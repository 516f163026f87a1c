package queue

import (
	"context"
	"time"
)

// BrokerAdapter adapts a concrete broker's *broker.Task return value to
// this package's Dequeuer interface, so pkg/queue never imports pkg/broker.
type BrokerAdapter struct {
	dequeue func(ctx context.Context, timeout time.Duration) (int64, bool, error)
}

// NewBrokerAdapter wraps a dequeue function. Callers pass a closure over
// their concrete broker, e.g.:
//
//	queue.NewBrokerAdapter(func(ctx context.Context, timeout time.Duration) (int64, bool, error) {
//	    task, err := b.Dequeue(ctx, timeout)
//	    if err != nil || task == nil {
//	        return 0, false, err
//	    }
//	    return task.ScenarioRunID, true, nil
//	})
func NewBrokerAdapter(dequeue func(ctx context.Context, timeout time.Duration) (int64, bool, error)) *BrokerAdapter {
	return &BrokerAdapter{dequeue: dequeue}
}

func (a *BrokerAdapter) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	id, ok, err := a.dequeue(ctx, timeout)
	if err != nil || !ok {
		return nil, err
	}
	return &Task{ScenarioRunID: id}, nil
}
