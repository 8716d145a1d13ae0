package handler

import (
	"context"
	"net/http"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/usecase"
)

// PostingService turns commerce events into journal entries.
type PostingService interface {
	RecordOrderPaid(ctx context.Context, input usecase.OrderPaidInput) (*usecase.PostingResult, error)
	RecordRefund(ctx context.Context, input usecase.RefundInput) (*usecase.PostingResult, error)
	RecordPayout(ctx context.Context, input usecase.PayoutInput) (*usecase.PostingResult, error)
	RecordCOGS(ctx context.Context, input usecase.COGSInput) (*usecase.PostingResult, error)
}

// IngestHandler serves /ingest. Events post inline unless ?async=true, in
// which case they are handed to the queue and answered with 202.
type IngestHandler struct {
	postingUC PostingService
	queue     usecase.EventQueue
}

// NewIngestHandler creates a new IngestHandler. queue may be nil, in which
// case async requests are rejected.
func NewIngestHandler(postingUC PostingService, queue usecase.EventQueue) *IngestHandler {
	return &IngestHandler{postingUC: postingUC, queue: queue}
}

// ingest decodes req, then posts or enqueues it.
func ingest[R any, I any](
	h *IngestHandler,
	w http.ResponseWriter,
	r *http.Request,
	convert func(*R) I,
	post func(context.Context, I) (*usecase.PostingResult, error),
	enqueue func(context.Context, I) error,
) {
	async, err := parseBoolQuery(r, "async")
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}

	var req R
	if !decodeJSON(w, r, &req) {
		return
	}
	input := convert(&req)

	if async != nil && *async {
		if h.queue == nil {
			writeError(w, http.StatusServiceUnavailable, "async ingestion unavailable", "no queue configured")
			return
		}
		if err := enqueue(r.Context(), input); err != nil {
			writeDomainError(w, "failed to enqueue event", err)
			return
		}
		writeJSON(w, http.StatusAccepted, dto.PostingResponse{Queued: true})
		return
	}

	result, err := post(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to record event", err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, dto.PostingFromUseCase(result))
}

// Orders records a paid order.
func (h *IngestHandler) Orders(w http.ResponseWriter, r *http.Request) {
	ingest(h, w, r, (*dto.OrderPaidRequest).ToUseCaseInput, h.postingUC.RecordOrderPaid, h.enqueueOrderPaid)
}

// Refunds records a refund.
func (h *IngestHandler) Refunds(w http.ResponseWriter, r *http.Request) {
	ingest(h, w, r, (*dto.RefundRequest).ToUseCaseInput, h.postingUC.RecordRefund, h.enqueueRefund)
}

// Payouts records a payout.
func (h *IngestHandler) Payouts(w http.ResponseWriter, r *http.Request) {
	ingest(h, w, r, (*dto.PayoutRequest).ToUseCaseInput, h.postingUC.RecordPayout, h.enqueuePayout)
}

// COGS records cost of goods sold for an order.
func (h *IngestHandler) COGS(w http.ResponseWriter, r *http.Request) {
	ingest(h, w, r, (*dto.COGSRequest).ToUseCaseInput, h.postingUC.RecordCOGS, h.enqueueCOGS)
}

func (h *IngestHandler) enqueueOrderPaid(ctx context.Context, in usecase.OrderPaidInput) error {
	return h.queue.EnqueueOrderPaid(ctx, in)
}

func (h *IngestHandler) enqueueRefund(ctx context.Context, in usecase.RefundInput) error {
	return h.queue.EnqueueRefund(ctx, in)
}

func (h *IngestHandler) enqueuePayout(ctx context.Context, in usecase.PayoutInput) error {
	return h.queue.EnqueuePayout(ctx, in)
}

func (h *IngestHandler) enqueueCOGS(ctx context.Context, in usecase.COGSInput) error {
	return h.queue.EnqueueCOGS(ctx, in)
}
