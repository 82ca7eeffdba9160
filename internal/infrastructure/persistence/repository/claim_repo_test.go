package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/application/workflow"
	"github.com/garyjia/ai-claims/internal/domain/entity"
	domainwf "github.com/garyjia/ai-claims/internal/domain/workflow"
	"github.com/garyjia/ai-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/ai-claims/pkg/database"
)

func setupRepo(t *testing.T) (*ClaimRepository, *sqlite.DB) {
	t.Helper()

	db, err := database.New(database.Config{Path: database.MemoryPath}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, nil).RunMigrations(sqlite.Migrations, sqlite.MigrationsDir))

	txDB := sqlite.NewDB(db.DB, nil)
	return NewClaimRepository(txDB, nil), txDB
}

func sampleClaim(id string, submitted time.Time) *entity.Claim {
	c := &entity.Claim{
		ID:             id,
		CustomerID:     "PRECISION-003",
		OrderNumber:    "ORD-BEARING-ASSEMBLY-456",
		ProductID:      "BEARING-RACE-INNER-25MM",
		Description:    "Inner race measures 25.4mm instead of 25mm",
		Category:       entity.CategoryWrongSize,
		Priority:       entity.PriorityMedium,
		Status:         entity.StatusSubmitted,
		SubmissionDate: submitted,
		SLADeadline:    submitted.Add(72 * time.Hour),
		Images:         []string{"measurement.jpg"},
		Attachments:    []string{},
		Tags:           []string{"precision"},
		EstimatedValue: 2800,
		CreatedAt:      submitted,
		UpdatedAt:      submitted,
	}
	c.AppendAudit(entity.ActionClaimSubmitted, entity.ActorSystem, map[string]interface{}{
		"submission_method": "api",
	}, submitted)
	return c
}

func TestClaimRepository_CreateAndGet(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	submitted := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	actual := 2500.0

	claim := sampleClaim("CLM-1", submitted)
	claim.ActualValue = &actual
	claim.RootCause = &entity.RootCause{
		Source:      entity.SourceInventory,
		Details:     "Picked from the wrong bin",
		Confidence:  0.78,
		RelatedData: map[string]interface{}{"warehouse_location": "B-12"},
	}
	claim.LastRecommendation = &entity.ResolutionRecommendation{
		Action:        entity.ActionReplacement,
		Confidence:    0.8,
		EstimatedCost: 2240,
	}

	require.NoError(t, repo.Create(ctx, claim))
	assert.ErrorIs(t, repo.Create(ctx, claim), port.ErrClaimExists)

	got, err := repo.GetByID(ctx, "CLM-1")
	require.NoError(t, err)

	assert.Equal(t, claim.ID, got.ID)
	assert.Equal(t, claim.CustomerID, got.CustomerID)
	assert.Equal(t, claim.Category, got.Category)
	assert.Equal(t, claim.Status, got.Status)
	assert.True(t, claim.SubmissionDate.Equal(got.SubmissionDate))
	assert.True(t, claim.SLADeadline.Equal(got.SLADeadline))
	assert.Equal(t, claim.Images, got.Images)
	assert.Equal(t, []string{}, got.Attachments)
	assert.Equal(t, claim.Tags, got.Tags)
	require.NotNil(t, got.ActualValue)
	assert.Equal(t, 2500.0, *got.ActualValue)
	require.NotNil(t, got.RootCause)
	assert.Equal(t, entity.SourceInventory, got.RootCause.Source)
	assert.Equal(t, "B-12", got.RootCause.RelatedData["warehouse_location"])
	require.NotNil(t, got.LastRecommendation)
	assert.Equal(t, entity.ActionReplacement, got.LastRecommendation.Action)
	assert.Nil(t, got.Resolution)
	assert.Nil(t, got.LastAnalysis)

	require.Len(t, got.AuditTrail, 1)
	assert.Equal(t, entity.ActionClaimSubmitted, got.AuditTrail[0].Action)
	assert.Equal(t, entity.ActorSystem, got.AuditTrail[0].UserID)
	assert.Equal(t, "api", got.AuditTrail[0].Details["submission_method"])
	assert.True(t, submitted.Equal(got.AuditTrail[0].Timestamp))
}

func TestClaimRepository_GetByIDNotFound(t *testing.T) {
	repo, _ := setupRepo(t)

	_, err := repo.GetByID(context.Background(), "CLM-404")

	assert.ErrorIs(t, err, port.ErrClaimNotFound)
}

func TestClaimRepository_UpdateAppendsAuditEntries(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	submitted := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, sampleClaim("CLM-1", submitted)))

	claim, err := repo.GetByID(ctx, "CLM-1")
	require.NoError(t, err)

	executedAt := submitted.Add(5 * time.Hour)
	amount := 1500.0
	claim.Status = entity.StatusResolved
	claim.Resolution = &entity.Resolution{
		Type:             entity.ResolutionRefund,
		Amount:           &amount,
		ApprovedBy:       "reviewer-7",
		ExecutedAt:       &executedAt,
		CustomerNotified: true,
	}
	claim.AppendAudit(entity.ActionClaimApproved, "reviewer-7", nil, submitted.Add(4*time.Hour))
	claim.AppendAudit(entity.ActionResolutionExecuted, entity.ActorSystem, map[string]interface{}{
		"resolution_type": "refund",
	}, executedAt)
	require.NoError(t, repo.Update(ctx, claim))

	got, err := repo.GetByID(ctx, "CLM-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusResolved, got.Status)
	require.NotNil(t, got.Resolution)
	assert.Equal(t, 1500.0, *got.Resolution.Amount)
	assert.True(t, executedAt.Equal(*got.Resolution.ExecutedAt))
	assert.True(t, got.Resolution.CustomerNotified)

	require.Len(t, got.AuditTrail, 3)
	assert.Equal(t, []string{
		entity.ActionClaimSubmitted,
		entity.ActionClaimApproved,
		entity.ActionResolutionExecuted,
	}, []string{got.AuditTrail[0].Action, got.AuditTrail[1].Action, got.AuditTrail[2].Action})

	// a stale copy with fewer entries must not truncate the trail
	got.AuditTrail = got.AuditTrail[:2]
	assert.Error(t, repo.Update(ctx, got))

	assert.ErrorIs(t, repo.Update(ctx, sampleClaim("CLM-404", submitted)), port.ErrClaimNotFound)
}

func TestClaimRepository_AuditEntriesAreImmutable(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, sampleClaim("CLM-1", time.Now())))

	_, err := db.ExecContext(ctx, "UPDATE claim_audit_entries SET action = 'tampered' WHERE claim_id = ?", "CLM-1")
	assert.Error(t, err)

	_, err = db.ExecContext(ctx, "DELETE FROM claim_audit_entries WHERE claim_id = ?", "CLM-1")
	assert.Error(t, err)

	got, err := repo.GetByID(ctx, "CLM-1")
	require.NoError(t, err)
	require.Len(t, got.AuditTrail, 1)
	assert.Equal(t, entity.ActionClaimSubmitted, got.AuditTrail[0].Action)
}

func TestClaimRepository_ListFiltersAndOrders(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	late := sampleClaim("CLM-B", base.Add(2*time.Hour))
	early := sampleClaim("CLM-C", base)
	other := sampleClaim("CLM-A", base.Add(time.Hour))
	other.Category = entity.CategoryDefective
	other.Status = entity.StatusEscalated

	for _, c := range []*entity.Claim{late, early, other} {
		require.NoError(t, repo.Create(ctx, c))
	}

	all, err := repo.List(ctx, port.ClaimFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "CLM-C", all[0].ID)
	assert.Equal(t, "CLM-A", all[1].ID)
	assert.Equal(t, "CLM-B", all[2].ID)
	for _, c := range all {
		assert.Len(t, c.AuditTrail, 1)
	}

	escalated, err := repo.List(ctx, port.ClaimFilter{Status: entity.StatusEscalated})
	require.NoError(t, err)
	require.Len(t, escalated, 1)
	assert.Equal(t, "CLM-A", escalated[0].ID)

	sameOrder, err := repo.List(ctx, port.ClaimFilter{
		CustomerID:  "PRECISION-003",
		OrderNumber: "ORD-BEARING-ASSEMBLY-456",
		ProductID:   "BEARING-RACE-INNER-25MM",
		Category:    entity.CategoryWrongSize,
	})
	require.NoError(t, err)
	assert.Len(t, sameOrder, 2)
}

func TestClaimRepository_TransactionRollback(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()
	abort := errors.New("abort")

	err := db.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := repo.Create(txCtx, sampleClaim("CLM-1", time.Now())); err != nil {
			return err
		}
		return abort
	})
	require.ErrorIs(t, err, abort)

	_, err = repo.GetByID(ctx, "CLM-1")
	assert.ErrorIs(t, err, port.ErrClaimNotFound)
}

func TestClaimRepository_WithEngine(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()
	engine := workflow.NewEngine(repo, db)

	require.NoError(t, engine.Create(ctx, sampleClaim("CLM-1", time.Now())))

	_, err := engine.Transition(ctx, "CLM-1", workflow.TransitionRequest{
		Trigger: domainwf.TriggerCompleteAnalysis,
		Action:  entity.ActionAIProcessingCompleted,
		Actor:   entity.ActorAISystem,
	})
	require.NoError(t, err)

	_, err = engine.Transition(ctx, "CLM-1", workflow.TransitionRequest{
		Trigger: domainwf.TriggerExecuteResolution,
		Action:  entity.ActionResolutionExecuted,
		Actor:   entity.ActorSystem,
	})
	assert.ErrorIs(t, err, domainwf.ErrInvalidTransition)

	got, err := repo.GetByID(ctx, "CLM-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusTriaged, got.Status)
	require.Len(t, got.AuditTrail, 2)
	assert.Equal(t, "submitted", got.AuditTrail[1].Details["from_status"])
	assert.Equal(t, "triaged", got.AuditTrail[1].Details["to_status"])
}
