package plans

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pierrevannier/freelancehub-backend/pkg/enums"
	"github.com/pierrevannier/freelancehub-backend/pkg/errors"
)

func TestCatalogGetPlan(t *testing.T) {
	c := NewCatalog()

	pro, err := c.GetPlan(enums.PlanPro)
	require.NoError(t, err)
	assert.Equal(t, "Pro", pro.Name)
	assert.Equal(t, 50, pro.MaxProjects)
	assert.Equal(t, 5, pro.MaxUsers)
	assert.True(t, pro.MonthlyPrice.Equal(decimal.NewFromInt(29)))

	ent, err := c.GetPlan(enums.PlanEnterprise)
	require.NoError(t, err)
	assert.Equal(t, Unlimited, ent.MaxProjects)
	assert.True(t, ent.UnlimitedProjects())

	_, err = c.GetPlan(enums.PlanCode("platinum"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeUnknownPlan))
}

func TestCatalogGetPlanByCode3(t *testing.T) {
	c := NewCatalog()

	p, err := c.GetPlanByCode3("STA")
	require.NoError(t, err)
	assert.Equal(t, enums.PlanStarter, p.Code)
	assert.Equal(t, 5, p.MaxProjects)
	assert.Equal(t, 1, p.MaxUsers)

	_, err = c.GetPlanByCode3("XXX")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeUnknownPlan))
}

func TestCatalogAllPlansOrdered(t *testing.T) {
	all := NewCatalog().AllPlans()
	require.Len(t, all, 3)
	assert.Equal(t, enums.PlanStarter, all[0].Code)
	assert.Equal(t, enums.PlanPro, all[1].Code)
	assert.Equal(t, enums.PlanEnterprise, all[2].Code)
	for _, p := range all {
		assert.NotEmpty(t, p.Features)
	}
}
