package sorter

import (
	"strings"

	"monzo-manager/src/apperrors"
	"monzo-manager/src/models"
)

// Tier is a pot that is topped up to Target pence before money moves on.
type Tier struct {
	Pot    string `json:"pot"`
	Target int64  `json:"target"`
}

// DefaultTiers fills Bills to £1000 then Accessible Funds to £2000.
var DefaultTiers = []Tier{
	{Pot: "Bills", Target: 100000},
	{Pot: "Accessible Funds", Target: 200000},
}

const DefaultRemainderPot = "Long Term Savings"

// ParseTiers reads a list such as "Bills:1000.00,Accessible Funds:2000.00" with targets in pounds.
func ParseTiers(s string) ([]Tier, error) {
	var tiers []Tier
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i := strings.LastIndex(part, ":")
		if i < 0 {
			return nil, apperrors.Configuration("salary tier %q must be pot:target", part)
		}
		pot := strings.TrimSpace(part[:i])
		if pot == "" {
			return nil, apperrors.Configuration("salary tier %q has no pot name", part)
		}
		target, err := models.ParsePounds(strings.TrimSpace(part[i+1:]))
		if err != nil {
			return nil, apperrors.Configuration("salary tier %q has invalid target: %v", part, err)
		}
		if target < 0 {
			return nil, apperrors.Configuration("salary tier %q has a negative target", part)
		}
		tiers = append(tiers, Tier{Pot: pot, Target: target})
	}
	return tiers, nil
}
