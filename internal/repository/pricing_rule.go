package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/curbside-labs/lotwatch/internal/domain"
)

const pricingRuleColumns = `id, lot_id, name, weekdays, start_minute, end_minute, base_rate,
		priority, surge_active, surge_threshold, surge_rate, max_rate, is_active, created_at, updated_at`

type PricingRuleRepository struct {
	pool PgxPool
}

func NewPricingRuleRepository(pool PgxPool) *PricingRuleRepository {
	return &PricingRuleRepository{pool: pool}
}

func (r *PricingRuleRepository) Create(ctx context.Context, rule *domain.PricingRule) error {
	weekdaysJSON, err := json.Marshal(rule.Weekdays)
	if err != nil {
		return fmt.Errorf("marshal weekdays: %w", err)
	}

	query := `
		INSERT INTO pricing_rules (id, lot_id, name, weekdays, start_minute, end_minute, base_rate,
			priority, surge_active, surge_threshold, surge_rate, max_rate, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}

	err = r.pool.QueryRow(ctx, query,
		rule.ID,
		rule.LotID,
		rule.Name,
		weekdaysJSON,
		rule.StartMinute,
		rule.EndMinute,
		rule.BaseRate,
		rule.Priority,
		rule.SurgeActive,
		rule.SurgeThreshold,
		rule.SurgeRate,
		rule.MaxRate,
		rule.IsActive,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create pricing rule: %w", err)
	}

	return nil
}

func (r *PricingRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PricingRule, error) {
	query := `
		SELECT ` + pricingRuleColumns + `
		FROM pricing_rules
		WHERE id = $1
	`

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get pricing rule: %w", err)
	}
	defer rows.Close()

	rules, err := collectRules(rows)
	if err != nil {
		return nil, fmt.Errorf("get pricing rule: %w", err)
	}
	if len(rules) == 0 {
		return nil, domain.ErrNotFound
	}

	return &rules[0], nil
}

// ListActiveByLot returns every active rule for the lot, highest priority
// first, newest first on ties. The resolver relies on this ordering for its
// deterministic tie-break.
func (r *PricingRuleRepository) ListActiveByLot(ctx context.Context, lotID uuid.UUID) ([]domain.PricingRule, error) {
	query := `
		SELECT ` + pricingRuleColumns + `
		FROM pricing_rules
		WHERE lot_id = $1 AND is_active = true
		ORDER BY priority DESC, created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, lotID)
	if err != nil {
		return nil, fmt.Errorf("list active pricing rules: %w", err)
	}
	defer rows.Close()

	rules, err := collectRules(rows)
	if err != nil {
		return nil, fmt.Errorf("list active pricing rules: %w", err)
	}

	return rules, nil
}

func (r *PricingRuleRepository) ListByLot(ctx context.Context, lotID uuid.UUID) ([]domain.PricingRule, error) {
	query := `
		SELECT ` + pricingRuleColumns + `
		FROM pricing_rules
		WHERE lot_id = $1
		ORDER BY priority DESC, created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, lotID)
	if err != nil {
		return nil, fmt.Errorf("list pricing rules: %w", err)
	}
	defer rows.Close()

	rules, err := collectRules(rows)
	if err != nil {
		return nil, fmt.Errorf("list pricing rules: %w", err)
	}

	return rules, nil
}

func (r *PricingRuleRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.PricingRule, error) {
	query := `
		UPDATE pricing_rules
		SET is_active = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + pricingRuleColumns + `
	`

	rows, err := r.pool.Query(ctx, query, id, active)
	if err != nil {
		return nil, fmt.Errorf("set pricing rule active: %w", err)
	}
	defer rows.Close()

	rules, err := collectRules(rows)
	if err != nil {
		return nil, fmt.Errorf("set pricing rule active: %w", err)
	}
	if len(rules) == 0 {
		return nil, domain.ErrNotFound
	}

	return &rules[0], nil
}

func collectRules(rows pgx.Rows) ([]domain.PricingRule, error) {
	var rules []domain.PricingRule
	for rows.Next() {
		var rule domain.PricingRule
		var weekdaysJSON []byte

		err := rows.Scan(
			&rule.ID,
			&rule.LotID,
			&rule.Name,
			&weekdaysJSON,
			&rule.StartMinute,
			&rule.EndMinute,
			&rule.BaseRate,
			&rule.Priority,
			&rule.SurgeActive,
			&rule.SurgeThreshold,
			&rule.SurgeRate,
			&rule.MaxRate,
			&rule.IsActive,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pricing rule: %w", err)
		}

		if err := json.Unmarshal(weekdaysJSON, &rule.Weekdays); err != nil {
			return nil, fmt.Errorf("unmarshal weekdays: %w", err)
		}

		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rules, nil
}
