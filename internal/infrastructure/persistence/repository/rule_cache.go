package repository

import (
	"context"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// CachedRuleRepository serves GetByID from an in-process cache. Rules are
// immutable, so entries never need invalidation. Cached rules are shared and
// must be treated as read-only.
type CachedRuleRepository struct {
	inner  port.RuleRepository
	cache  *cache.Cache[int64, *entity.Rule]
	logger *zap.Logger
}

// NewCachedRuleRepository wraps inner with a rule cache
func NewCachedRuleRepository(inner port.RuleRepository, c *cache.Cache[int64, *entity.Rule], logger *zap.Logger) port.RuleRepository {
	return &CachedRuleRepository{inner: inner, cache: c, logger: logger}
}

// Create persists the rule. The cache is filled on first read, after the
// surrounding transaction has had a chance to commit.
func (r *CachedRuleRepository) Create(ctx context.Context, rule *entity.Rule) error {
	return r.inner.Create(ctx, rule)
}

func (r *CachedRuleRepository) GetByID(ctx context.Context, id int64) (*entity.Rule, error) {
	if rule, ok := r.cache.Get(id); ok {
		return rule, nil
	}

	rule, err := r.inner.GetByID(ctx, id)
	if err != nil || rule == nil {
		return rule, err
	}
	r.cache.Set(id, rule)
	r.logger.Debug("Rule cached", zap.Int64("rule_id", id))
	return rule, nil
}

func (r *CachedRuleRepository) ListByCompany(ctx context.Context, companyID int64) ([]*entity.Rule, error) {
	return r.inner.ListByCompany(ctx, companyID)
}

var _ port.RuleRepository = (*CachedRuleRepository)(nil)
