package ai

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/bobotcho/concierge-server-go/internal/errors"
)

const (
	ProviderBackend  = "backend"
	ProviderWorkflow = "workflow"

	workflowDispatchNote = "Message dispatched via workflow"
)

// Result is the classified outcome of one AI dispatch. Err is nil on
// success; Timeout marks deadline expiry as distinct from other upstream
// failures. Latency is wall-clock regardless of outcome.
type Result struct {
	Output   string
	Provider string
	Latency  time.Duration
	Timeout  bool
	Err      error
}

// Dispatcher coordinates the bounded call to the AI backend, falling back
// to the workflow engine when no backend is configured. The deadline is
// strictly shorter than Twilio's 30s webhook deadline so the caller always
// has time to log and respond.
type Dispatcher struct {
	backend  *BackendClient
	workflow *WorkflowClient
	timeout  time.Duration
}

func NewDispatcher(backend *BackendClient, workflow *WorkflowClient, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		backend:  backend,
		workflow: workflow,
		timeout:  timeout,
	}
}

// Dispatch never returns a raisable failure: every outcome is folded into
// the Result for the caller to persist in the interaction log.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var result Result
	switch {
	case d.backend != nil:
		result.Provider = ProviderBackend
		output, err := d.backend.Respond(ctx, req)
		result.Output = output
		result.Err = err
	case d.workflow != nil:
		result.Provider = ProviderWorkflow
		if err := d.workflow.Trigger(ctx, req); err != nil {
			result.Err = err
		} else {
			result.Output = workflowDispatchNote
		}
	default:
		result.Err = apperrors.Configuration("no AI backend or workflow engine configured")
	}

	result.Latency = time.Since(start)

	if result.Err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.Timeout = true
		result.Err = apperrors.UpstreamTimeout(result.Provider).WithCause(result.Err)
	}

	if result.Err != nil {
		log.Warn().
			Err(result.Err).
			Str("provider", result.Provider).
			Dur("latency", result.Latency).
			Bool("timeout", result.Timeout).
			Str("messageId", req.MessageID).
			Msg("ai dispatch failed")
	} else {
		log.Info().
			Str("provider", result.Provider).
			Dur("latency", result.Latency).
			Str("messageId", req.MessageID).
			Msg("ai dispatch completed")
	}

	return result
}
