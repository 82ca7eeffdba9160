package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/domain/entity"
	"github.com/garyjia/ai-claims/internal/infrastructure/persistence/sqlite"
)

// ClaimRepository implements port.ClaimRepository on SQLite.
// Audit entries live in their own insert-only table.
type ClaimRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sqlite.DB, logger *zap.Logger) *ClaimRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

const claimColumns = `
	id, customer_id, order_number, product_id, description,
	category, priority, status, submission_date, sla_deadline,
	estimated_value, actual_value, assigned_to, images, attachments, tags,
	root_cause, resolution, last_analysis, last_recommendation,
	created_at, updated_at`

// Create inserts the claim and its initial audit entries
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context) error {
		var exists int
		err := r.db.Executor(ctx).QueryRowContext(ctx, "SELECT COUNT(*) FROM claims WHERE id = ?", claim.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check claim: %w", err)
		}
		if exists > 0 {
			return fmt.Errorf("%w: %s", port.ErrClaimExists, claim.ID)
		}

		row, err := encodeClaim(claim)
		if err != nil {
			return err
		}

		query := `INSERT INTO claims (` + claimColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := r.db.Executor(ctx).ExecContext(ctx, query, row...); err != nil {
			r.logger.Error("Failed to create claim", zap.String("claim_id", claim.ID), zap.Error(err))
			return fmt.Errorf("failed to create claim: %w", err)
		}

		return r.insertAuditEntries(ctx, claim.ID, 0, claim.AuditTrail)
	})
}

// GetByID loads a claim with its full audit trail
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = ?`

	claim, err := scanClaim(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", port.ErrClaimNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get claim", zap.String("claim_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	trail, err := r.loadAuditTrail(ctx, id)
	if err != nil {
		return nil, err
	}
	claim.AuditTrail = trail

	return claim, nil
}

// List returns matching claims ordered by submission date, then id
func (r *ClaimRepository) List(ctx context.Context, filter port.ClaimFilter) ([]*entity.Claim, error) {
	var conditions []string
	var args []interface{}

	add := func(column, value string) {
		if value != "" {
			conditions = append(conditions, column+" = ?")
			args = append(args, value)
		}
	}
	add("status", string(filter.Status))
	add("category", string(filter.Category))
	add("customer_id", filter.CustomerID)
	add("order_number", filter.OrderNumber)
	add("product_id", filter.ProductID)

	query := `SELECT ` + claimColumns + ` FROM claims`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY submission_date, id"

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}

	var claims []*entity.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// rows must be closed first: an in-memory database has a single connection
	for _, claim := range claims {
		trail, err := r.loadAuditTrail(ctx, claim.ID)
		if err != nil {
			return nil, err
		}
		claim.AuditTrail = trail
	}

	return claims, nil
}

// Update rewrites the claim row and inserts audit entries past the stored tail.
// Stored entries are never touched; a trail shorter than the stored one is rejected.
func (r *ClaimRepository) Update(ctx context.Context, claim *entity.Claim) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context) error {
		var stored int
		err := r.db.Executor(ctx).QueryRowContext(ctx,
			"SELECT COUNT(*) FROM claim_audit_entries WHERE claim_id = ?", claim.ID).Scan(&stored)
		if err != nil {
			return fmt.Errorf("failed to count audit entries: %w", err)
		}
		if len(claim.AuditTrail) < stored {
			return fmt.Errorf("audit trail for %s would shrink from %d to %d entries",
				claim.ID, stored, len(claim.AuditTrail))
		}

		row, err := encodeClaim(claim)
		if err != nil {
			return err
		}

		query := `
			UPDATE claims SET
				customer_id = ?, order_number = ?, product_id = ?, description = ?,
				category = ?, priority = ?, status = ?, submission_date = ?, sla_deadline = ?,
				estimated_value = ?, actual_value = ?, assigned_to = ?, images = ?, attachments = ?, tags = ?,
				root_cause = ?, resolution = ?, last_analysis = ?, last_recommendation = ?,
				created_at = ?, updated_at = ?
			WHERE id = ?
		`
		args := append(row[1:], claim.ID)
		result, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
		if err != nil {
			r.logger.Error("Failed to update claim", zap.String("claim_id", claim.ID), zap.Error(err))
			return fmt.Errorf("failed to update claim: %w", err)
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: %s", port.ErrClaimNotFound, claim.ID)
		}

		return r.insertAuditEntries(ctx, claim.ID, stored, claim.AuditTrail[stored:])
	})
}

func (r *ClaimRepository) insertAuditEntries(ctx context.Context, claimID string, offset int, entries []entity.AuditEntry) error {
	for i, entry := range entries {
		details, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}

		_, err = r.db.Executor(ctx).ExecContext(ctx, `
			INSERT INTO claim_audit_entries (claim_id, seq, timestamp, action, user_id, details)
			VALUES (?, ?, ?, ?, ?, ?)
		`, claimID, offset+i, entry.Timestamp.UTC(), entry.Action, entry.UserID, string(details))
		if err != nil {
			r.logger.Error("Failed to insert audit entry",
				zap.String("claim_id", claimID),
				zap.String("action", entry.Action),
				zap.Error(err))
			return fmt.Errorf("failed to insert audit entry: %w", err)
		}
	}
	return nil
}

func (r *ClaimRepository) loadAuditTrail(ctx context.Context, claimID string) ([]entity.AuditEntry, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT timestamp, action, user_id, details
		FROM claim_audit_entries
		WHERE claim_id = ?
		ORDER BY seq
	`, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit trail: %w", err)
	}
	defer rows.Close()

	trail := []entity.AuditEntry{}
	for rows.Next() {
		var entry entity.AuditEntry
		var details string
		if err := rows.Scan(&entry.Timestamp, &entry.Action, &entry.UserID, &details); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if err := json.Unmarshal([]byte(details), &entry.Details); err != nil {
			return nil, fmt.Errorf("failed to decode audit details: %w", err)
		}
		trail = append(trail, entry)
	}
	return trail, rows.Err()
}

// encodeClaim returns the column values in claimColumns order
func encodeClaim(c *entity.Claim) ([]interface{}, error) {
	images, err := encodeJSON(nonNilStrings(c.Images))
	if err != nil {
		return nil, err
	}
	attachments, err := encodeJSON(nonNilStrings(c.Attachments))
	if err != nil {
		return nil, err
	}
	tags, err := encodeJSON(nonNilStrings(c.Tags))
	if err != nil {
		return nil, err
	}
	rootCause, err := encodeOptional(c.RootCause, c.RootCause == nil)
	if err != nil {
		return nil, err
	}
	resolution, err := encodeOptional(c.Resolution, c.Resolution == nil)
	if err != nil {
		return nil, err
	}
	analysis, err := encodeOptional(c.LastAnalysis, c.LastAnalysis == nil)
	if err != nil {
		return nil, err
	}
	recommendation, err := encodeOptional(c.LastRecommendation, c.LastRecommendation == nil)
	if err != nil {
		return nil, err
	}

	var actual sql.NullFloat64
	if c.ActualValue != nil {
		actual = sql.NullFloat64{Float64: *c.ActualValue, Valid: true}
	}

	return []interface{}{
		c.ID, c.CustomerID, c.OrderNumber, c.ProductID, c.Description,
		string(c.Category), string(c.Priority), string(c.Status), c.SubmissionDate.UTC(), c.SLADeadline.UTC(),
		c.EstimatedValue, actual, c.AssignedTo, images, attachments, tags,
		rootCause, resolution, analysis, recommendation,
		c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	}, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanClaim(s scanner) (*entity.Claim, error) {
	var (
		c                                entity.Claim
		category, priority, status       string
		actual                           sql.NullFloat64
		images, attachments, tags        string
		rootCause, resolution            sql.NullString
		lastAnalysis, lastRecommendation sql.NullString
		submissionDate, slaDeadline      time.Time
		created, updated                 time.Time
	)

	err := s.Scan(
		&c.ID, &c.CustomerID, &c.OrderNumber, &c.ProductID, &c.Description,
		&category, &priority, &status, &submissionDate, &slaDeadline,
		&c.EstimatedValue, &actual, &c.AssignedTo, &images, &attachments, &tags,
		&rootCause, &resolution, &lastAnalysis, &lastRecommendation,
		&created, &updated,
	)
	if err != nil {
		return nil, err
	}

	c.Category = entity.Category(category)
	c.Priority = entity.Priority(priority)
	c.Status = entity.ClaimStatus(status)
	c.SubmissionDate = submissionDate
	c.SLADeadline = slaDeadline
	c.CreatedAt = created
	c.UpdatedAt = updated
	if actual.Valid {
		v := actual.Float64
		c.ActualValue = &v
	}

	if err := json.Unmarshal([]byte(images), &c.Images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	if err := json.Unmarshal([]byte(attachments), &c.Attachments); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := decodeOptional(rootCause, &c.RootCause); err != nil {
		return nil, fmt.Errorf("decode root cause: %w", err)
	}
	if err := decodeOptional(resolution, &c.Resolution); err != nil {
		return nil, fmt.Errorf("decode resolution: %w", err)
	}
	if err := decodeOptional(lastAnalysis, &c.LastAnalysis); err != nil {
		return nil, fmt.Errorf("decode last analysis: %w", err)
	}
	if err := decodeOptional(lastRecommendation, &c.LastRecommendation); err != nil {
		return nil, fmt.Errorf("decode last recommendation: %w", err)
	}

	return &c, nil
}

func encodeJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode claim field: %w", err)
	}
	return string(data), nil
}

func encodeOptional(v interface{}, isNil bool) (sql.NullString, error) {
	if isNil {
		return sql.NullString{}, nil
	}
	s, err := encodeJSON(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: s, Valid: true}, nil
}

func decodeOptional(s sql.NullString, dest interface{}) error {
	if !s.Valid {
		return nil
	}
	return json.Unmarshal([]byte(s.String), dest)
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

var _ port.ClaimRepository = (*ClaimRepository)(nil)
