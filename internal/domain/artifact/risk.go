package artifact

import (
	"fmt"
	"strings"
)

// RiskLevel orders low < medium < high < critical. The ordering feeds the
// auto-approve ceiling comparison, so it is explicit rather than lexical.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// ParseRiskLevel validates a risk level string from config or collaborators.
func ParseRiskLevel(raw string) (RiskLevel, error) {
	level := RiskLevel(strings.TrimSpace(strings.ToLower(raw)))
	if _, ok := riskRank[level]; !ok {
		return "", fmt.Errorf("%w: unknown risk level %q", ErrValidation, raw)
	}
	return level, nil
}

// AtMost reports whether level is at or below ceiling in risk order.
func (l RiskLevel) AtMost(ceiling RiskLevel) bool {
	lr, ok := riskRank[l]
	if !ok {
		return false
	}
	cr, ok := riskRank[ceiling]
	if !ok {
		return false
	}
	return lr <= cr
}
