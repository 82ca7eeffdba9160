package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/domain/entity"
)

// ErrNoHandler is returned when no handler is registered for a resolution type
var ErrNoHandler = errors.New("no handler for resolution type")

// ResolutionExecutor dispatches a resolution to the handler for its type.
// Each call invokes exactly one handler once; there is no retry.
type ResolutionExecutor struct {
	handlers map[entity.ResolutionType]port.ResolutionHandler
}

// NewResolutionExecutor creates an executor over the given dispatch table
func NewResolutionExecutor(handlers map[entity.ResolutionType]port.ResolutionHandler) *ResolutionExecutor {
	table := make(map[entity.ResolutionType]port.ResolutionHandler, len(handlers))
	for t, h := range handlers {
		table[t] = h
	}
	return &ResolutionExecutor{handlers: table}
}

// Execute runs the handler registered for resolution.Type
func (e *ResolutionExecutor) Execute(ctx context.Context, claim *entity.Claim, resolution *entity.Resolution) error {
	handler, ok := e.handlers[resolution.Type]
	if !ok || handler == nil {
		return fmt.Errorf("%w: %s", ErrNoHandler, resolution.Type)
	}
	if err := handler.Execute(ctx, claim, resolution); err != nil {
		return fmt.Errorf("%s handler: %w", resolution.Type, err)
	}
	return nil
}
