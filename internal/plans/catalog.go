package plans

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pierrevannier/freelancehub-backend/pkg/enums"
	"github.com/pierrevannier/freelancehub-backend/pkg/errors"
)

// Unlimited marks a quota with no cap.
const Unlimited = -1

// Plan describes the entitlements a subscription tier grants.
type Plan struct {
	Code         enums.PlanCode  `json:"code"`
	Name         string          `json:"name"`
	MaxProjects  int             `json:"maxProjects"`
	MaxUsers     int             `json:"maxUsers"`
	Features     []string        `json:"features"`
	MonthlyPrice decimal.Decimal `json:"monthlyPrice"`
}

// Unlimited reports whether the plan has no project cap.
func (p Plan) UnlimitedProjects() bool {
	return p.MaxProjects == Unlimited
}

// Catalog resolves plan codes to their entitlements. Implementations must be
// safe for concurrent reads.
type Catalog interface {
	GetPlan(code enums.PlanCode) (Plan, error)
	GetPlanByCode3(code3 string) (Plan, error)
	AllPlans() []Plan
}

type catalog struct {
	byCode map[enums.PlanCode]Plan
	order  []enums.PlanCode
}

// NewCatalog builds the static in-process catalog.
func NewCatalog() Catalog {
	defs := []Plan{
		{
			Code:        enums.PlanStarter,
			Name:        "Starter",
			MaxProjects: 5,
			MaxUsers:    1,
			Features: []string{
				"invoicing",
				"time_tracking",
			},
			MonthlyPrice: decimal.NewFromInt(9),
		},
		{
			Code:        enums.PlanPro,
			Name:        "Pro",
			MaxProjects: 50,
			MaxUsers:    5,
			Features: []string{
				"invoicing",
				"time_tracking",
				"client_portal",
				"recurring_invoices",
			},
			MonthlyPrice: decimal.NewFromInt(29),
		},
		{
			Code:        enums.PlanEnterprise,
			Name:        "Enterprise",
			MaxProjects: Unlimited,
			MaxUsers:    50,
			Features: []string{
				"invoicing",
				"time_tracking",
				"client_portal",
				"recurring_invoices",
				"api_access",
				"priority_support",
			},
			MonthlyPrice: decimal.NewFromInt(99),
		},
	}

	c := &catalog{byCode: make(map[enums.PlanCode]Plan, len(defs))}
	for _, p := range defs {
		c.byCode[p.Code] = p
		c.order = append(c.order, p.Code)
	}
	return c
}

func (c *catalog) GetPlan(code enums.PlanCode) (Plan, error) {
	p, ok := c.byCode[code]
	if !ok {
		return Plan{}, errors.New(errors.CodeUnknownPlan, fmt.Sprintf("unknown plan %q", code))
	}
	return p, nil
}

func (c *catalog) GetPlanByCode3(code3 string) (Plan, error) {
	code, err := enums.ParsePlanCode3(code3)
	if err != nil {
		return Plan{}, errors.Wrap(errors.CodeUnknownPlan, err, fmt.Sprintf("unknown plan code %q", code3))
	}
	return c.GetPlan(code)
}

func (c *catalog) AllPlans() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, code := range c.order {
		out = append(out, c.byCode[code])
	}
	return out
}
