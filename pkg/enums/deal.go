package enums

import "fmt"

// DealStatus tracks the lifecycle of a commodity deal.
type DealStatus string

const (
	DealStatusOpen         DealStatus = "OPEN"
	DealStatusClosed       DealStatus = "CLOSED"
	DealStatusExportFailed DealStatus = "EXPORT_FAILED"
)

var validDealStatuses = []DealStatus{
	DealStatusOpen,
	DealStatusClosed,
	DealStatusExportFailed,
}

// String implements fmt.Stringer.
func (d DealStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DealStatus.
func (d DealStatus) IsValid() bool {
	for _, candidate := range validDealStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// PricingModel selects how the effective unit price of a deal is computed.
type PricingModel string

const (
	// PricingModelFixed uses the deal's stored price per kg.
	PricingModelFixed PricingModel = "FIXED"
	// PricingModelDynamic derives the price from the live market quote.
	PricingModelDynamic PricingModel = "DYNAMIC"
)

func (p PricingModel) String() string {
	return string(p)
}

func (p PricingModel) IsValid() bool {
	return p == PricingModelFixed || p == PricingModelDynamic
}

// DealFrequency distinguishes one-shot deals from recurring contracts.
type DealFrequency string

const (
	DealFrequencySpot      DealFrequency = "SPOT"
	DealFrequencyMonthly   DealFrequency = "MONTHLY"
	DealFrequencyQuarterly DealFrequency = "QUARTERLY"
)

var validDealFrequencies = []DealFrequency{
	DealFrequencySpot,
	DealFrequencyMonthly,
	DealFrequencyQuarterly,
}

func (f DealFrequency) String() string {
	return string(f)
}

func (f DealFrequency) IsValid() bool {
	for _, candidate := range validDealFrequencies {
		if candidate == f {
			return true
		}
	}
	return false
}

// IsPeriodic reports whether the deal re-tranches after delivery.
func (f DealFrequency) IsPeriodic() bool {
	return f.IsValid() && f != DealFrequencySpot
}

// ParseDealFrequency converts raw input into a DealFrequency.
func ParseDealFrequency(value string) (DealFrequency, error) {
	for _, candidate := range validDealFrequencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deal frequency %q", value)
}
