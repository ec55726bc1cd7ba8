package subsidy

import (
	"fmt"

	"dpr_engine/pkg/core/calc"
	"dpr_engine/pkg/core/scheme"
)

// MudraConfig is the lending policy of a MUDRA tier
type MudraConfig struct {
	Tier                 scheme.MudraTier `json:"tier"`
	MaxLimit             float64          `json:"maxLimit"`
	CollateralRequired   bool             `json:"collateralRequired"`
	ProcessingFeePercent float64          `json:"processingFeePercent"`
	Focus                string           `json:"focus,omitempty"`
}

// ProcessingFee returns the fee charged on a sanctioned amount
func (m MudraConfig) ProcessingFee(amount float64) float64 {
	return calc.Round2(amount * m.ProcessingFeePercent / 100)
}

// GetMudraConfig looks up a MUDRA tier
func (c *Calculator) GetMudraConfig(tier scheme.MudraTier) (MudraConfig, error) {
	rule, err := c.KB.MudraTier(tier)
	if err != nil {
		return MudraConfig{}, err
	}
	return MudraConfig{
		Tier:                 rule.Tier,
		MaxLimit:             rule.MaxLimit,
		CollateralRequired:   rule.CollateralRequired,
		ProcessingFeePercent: rule.ProcessingFeePercent,
		Focus:                rule.Focus,
	}, nil
}

// SuggestMudraTier returns the smallest tier whose limit covers the loan
func (c *Calculator) SuggestMudraTier(loanAmount float64) (MudraConfig, error) {
	if loanAmount < 0 {
		return MudraConfig{}, fmt.Errorf("loan amount: %w", ErrNegativeAmount)
	}
	for _, tier := range scheme.MudraTiers {
		cfg, err := c.GetMudraConfig(tier)
		if err != nil {
			return MudraConfig{}, err
		}
		if loanAmount <= cfg.MaxLimit {
			return cfg, nil
		}
	}
	return MudraConfig{}, fmt.Errorf("%w: %.0f", ErrLoanExceedsMudraLimit, loanAmount)
}

// GetMudraConfig uses the built-in knowledge base
func GetMudraConfig(tier scheme.MudraTier) (MudraConfig, error) {
	return NewCalculator(nil).GetMudraConfig(tier)
}
