package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

type fixedRates struct{}

func (fixedRates) GetRate(ctx context.Context, from, to string) (float64, error) {
	return 1, nil
}

func testConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "container.db")
	cfg.Metrics.Enabled = false
	return cfg
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Database.Driver = "mysql"
	_, err = NewContainer(cfg, zap.NewNop())
	assert.ErrorContains(t, err, "database.driver")
}

func TestContainer_Lifecycle(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop(), WithRateProvider(fixedRates{}))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(ctx), "second start must fail")

	health := c.Health(ctx)
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)
	assert.True(t, health.Components["dispatcher"].Healthy)

	svc := c.Services()
	company, admin, err := svc.Directory.CreateCompany(ctx, service.CreateCompanyInput{
		Name:         "Globex",
		CurrencyCode: "usd",
		AdminName:    "Hank",
		AdminEmail:   "hank@globex.test",
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", company.DefaultCurrencyCode)

	claim, err := svc.Claims.Submit(ctx, service.SubmitInput{
		OwnerID:      admin.ID,
		CurrencyCode: "USD",
		Lines:        []service.LineInput{{Amount: 12.5}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, claim.Status)

	rec := httptest.NewRecorder()
	c.Server().Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close(), "second close must fail")
	assert.Error(t, c.Start(ctx), "start after close must fail")
}

func TestContainer_HealthBeforeStart(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	health := c.Health(context.Background())
	assert.False(t, health.Overall)
	assert.False(t, health.Components["database"].Healthy)
}
