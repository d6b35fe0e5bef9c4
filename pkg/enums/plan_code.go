package enums

import "fmt"

// PlanCode identifies a subscription tier in the static plan catalog.
type PlanCode string

const (
	PlanStarter    PlanCode = "starter"
	PlanPro        PlanCode = "pro"
	PlanEnterprise PlanCode = "enterprise"
)

var validPlanCodes = []PlanCode{
	PlanStarter,
	PlanPro,
	PlanEnterprise,
}

// code3ByPlan holds the 3-letter wire codes embedded in license key strings.
var code3ByPlan = map[PlanCode]string{
	PlanStarter:    "STA",
	PlanPro:        "PRO",
	PlanEnterprise: "ENT",
}

// String implements fmt.Stringer.
func (p PlanCode) String() string {
	return string(p)
}

// IsValid reports whether the value is a known plan.
func (p PlanCode) IsValid() bool {
	for _, candidate := range validPlanCodes {
		if candidate == p {
			return true
		}
	}
	return false
}

// Code3 returns the uppercase 3-letter code used in encoded license keys.
func (p PlanCode) Code3() string {
	return code3ByPlan[p]
}

// ParsePlanCode converts raw input into a PlanCode.
func ParsePlanCode(value string) (PlanCode, error) {
	for _, candidate := range validPlanCodes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan code %q", value)
}

// ParsePlanCode3 maps a 3-letter wire code back to its PlanCode.
func ParsePlanCode3(value string) (PlanCode, error) {
	for plan, code3 := range code3ByPlan {
		if code3 == value {
			return plan, nil
		}
	}
	return "", fmt.Errorf("unknown plan code %q", value)
}
