// Package queue carries commerce events through asynq so that ingestion can
// return before the journal entry is posted.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/iho/gobooks/internal/usecase"
)

// QueueCommerce is the asynq queue commerce tasks run on.
const QueueCommerce = "commerce"

// MaxRetry bounds redelivery of a failing commerce task.
const MaxRetry = 5

// Task types, one per commerce event.
const (
	TaskOrderPaid = "commerce:" + usecase.CommerceEventOrderPaid
	TaskRefund    = "commerce:" + usecase.CommerceEventRefund
	TaskPayout    = "commerce:" + usecase.CommerceEventPayout
	TaskCOGS      = "commerce:" + usecase.CommerceEventCOGS
)

// NewOrderPaidTask constructs a task for a paid order.
func NewOrderPaidTask(input usecase.OrderPaidInput) (*asynq.Task, error) {
	return newTask(TaskOrderPaid, input.ExternalID, input)
}

// NewRefundTask constructs a task for a refund.
func NewRefundTask(input usecase.RefundInput) (*asynq.Task, error) {
	return newTask(TaskRefund, input.ExternalID, input)
}

// NewPayoutTask constructs a task for a payout.
func NewPayoutTask(input usecase.PayoutInput) (*asynq.Task, error) {
	return newTask(TaskPayout, input.ExternalID, input)
}

// NewCOGSTask constructs a task for a cost-of-goods-sold posting.
func NewCOGSTask(input usecase.COGSInput) (*asynq.Task, error) {
	return newTask(TaskCOGS, input.OrderNumber, input)
}

// newTask encodes payload and keys the task by type and external ID so a
// redelivered webhook does not enqueue twice while the first is pending.
func newTask(taskType, key string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", taskType, err)
	}

	opts := []asynq.Option{asynq.Queue(QueueCommerce), asynq.MaxRetry(MaxRetry)}
	if key != "" {
		opts = append(opts, asynq.TaskID(taskType+":"+key))
	}
	return asynq.NewTask(taskType, data, opts...), nil
}
