package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/domain/entity"
)

func TestResolutionExecutor_DispatchesByType(t *testing.T) {
	calls := map[entity.ResolutionType]int{}
	record := func(rt entity.ResolutionType) port.ResolutionHandler {
		return port.ResolutionHandlerFunc(func(ctx context.Context, claim *entity.Claim, res *entity.Resolution) error {
			calls[rt]++
			return nil
		})
	}

	executor := NewResolutionExecutor(map[entity.ResolutionType]port.ResolutionHandler{
		entity.ResolutionRefund:        record(entity.ResolutionRefund),
		entity.ResolutionRemake:        record(entity.ResolutionRemake),
		entity.ResolutionReplacement:   record(entity.ResolutionReplacement),
		entity.ResolutionPartialCredit: record(entity.ResolutionPartialCredit),
	})

	claim := &entity.Claim{ID: "CLM-1"}
	for _, rt := range []entity.ResolutionType{
		entity.ResolutionRefund,
		entity.ResolutionRemake,
		entity.ResolutionReplacement,
		entity.ResolutionPartialCredit,
	} {
		require.NoError(t, executor.Execute(context.Background(), claim, &entity.Resolution{Type: rt}))
	}

	for rt, n := range calls {
		assert.Equal(t, 1, n, "handler %s", rt)
	}
	assert.Len(t, calls, 4)
}

func TestResolutionExecutor_MissingHandler(t *testing.T) {
	executor := NewResolutionExecutor(nil)

	err := executor.Execute(context.Background(), &entity.Claim{}, &entity.Resolution{Type: entity.ResolutionRefund})

	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestResolutionExecutor_HandlerErrorIsWrapped(t *testing.T) {
	paymentDown := errors.New("payment gateway unavailable")
	executor := NewResolutionExecutor(map[entity.ResolutionType]port.ResolutionHandler{
		entity.ResolutionRefund: port.ResolutionHandlerFunc(func(ctx context.Context, claim *entity.Claim, res *entity.Resolution) error {
			return paymentDown
		}),
	})

	err := executor.Execute(context.Background(), &entity.Claim{}, &entity.Resolution{Type: entity.ResolutionRefund})

	assert.ErrorIs(t, err, paymentDown)
	assert.Contains(t, err.Error(), "refund")
}
