package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/iho/gobooks/internal/usecase"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client submits commerce tasks to the queue. It implements usecase.EventQueue.
type Client struct {
	client enqueuer
	closer func() error
}

var _ usecase.EventQueue = (*Client)(nil)

// NewClient constructs an asynq-backed Client.
func NewClient(redisOpt asynq.RedisConnOpt) *Client {
	c := asynq.NewClient(redisOpt)
	return &Client{client: c, closer: c.Close}
}

// EnqueueOrderPaid enqueues a paid order.
func (c *Client) EnqueueOrderPaid(ctx context.Context, input usecase.OrderPaidInput) error {
	return enqueue(ctx, c, NewOrderPaidTask, input)
}

// EnqueueRefund enqueues a refund.
func (c *Client) EnqueueRefund(ctx context.Context, input usecase.RefundInput) error {
	return enqueue(ctx, c, NewRefundTask, input)
}

// EnqueuePayout enqueues a payout.
func (c *Client) EnqueuePayout(ctx context.Context, input usecase.PayoutInput) error {
	return enqueue(ctx, c, NewPayoutTask, input)
}

// EnqueueCOGS enqueues a cost-of-goods-sold posting.
func (c *Client) EnqueueCOGS(ctx context.Context, input usecase.COGSInput) error {
	return enqueue(ctx, c, NewCOGSTask, input)
}

// Close releases client resources.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func enqueue[T any](ctx context.Context, c *Client, build func(T) (*asynq.Task, error), input T) error {
	task, err := build(input)
	if err != nil {
		return err
	}

	if _, err := c.client.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return nil
}
