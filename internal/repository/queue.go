package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"sync"
)

// maxAttempts is how many flushes may reject an operation before it is
// dropped from the queue.
const maxAttempts = 3

type queuedOp[T any] struct {
	run      func(tx T) error
	failures int
}

// opQueue holds the operations waiting for the next flush. T is the
// transaction handle the operations run against.
type opQueue[T any] struct {
	mu  sync.Mutex
	ops []*queuedOp[T]
}

func (q *opQueue[T]) push(op func(tx T) error) {
	q.mu.Lock()
	q.ops = append(q.ops, &queuedOp[T]{run: op})
	q.mu.Unlock()
}

func (q *opQueue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// flush hands the queued operations to inTx, which must run them inside a
// single transaction.
//
// When an operation is rejected the transaction rolls back. A conflicting
// operation is dropped at once, any other rejected operation after
// maxAttempts flushes, and the rest of the batch is retried in the same call.
// Failures outside an operation (begin, commit, lost connection, cancelled
// context) keep the whole queue.
func (q *opQueue[T]) flush(inTx func(apply func(tx T) error) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var dropped []error
	for len(q.ops) > 0 {
		failed := -1
		err := inTx(func(tx T) error {
			for i, op := range q.ops {
				if err := op.run(tx); err != nil {
					failed = i
					return err
				}
			}
			return nil
		})
		if err == nil {
			q.ops = nil
			break
		}

		if failed < 0 || transient(err) {
			return storageError(append(dropped, err))
		}
		op := q.ops[failed]
		op.failures++
		if !errors.Is(err, ErrConflict) && op.failures < maxAttempts {
			return storageError(append(dropped, err))
		}
		q.ops = append(q.ops[:failed], q.ops[failed+1:]...)
		dropped = append(dropped, fmt.Errorf("operation dropped: %w", err))
	}

	if len(dropped) > 0 {
		return storageError(dropped)
	}
	return nil
}

func storageError(errs []error) error {
	return fmt.Errorf("%w: %w", ErrStorage, errors.Join(errs...))
}

// transient reports errors that say nothing about the operation itself.
func transient(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, driver.ErrBadConn)
}
