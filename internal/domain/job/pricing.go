package job

import (
	"math"

	"github.com/tripexl/service-dispatch/internal/domain"
)

// VehicleType is the vehicle category a job is booked for.
type VehicleType string

const (
	VehicleBike  VehicleType = "bike"
	VehicleCar   VehicleType = "car"
	VehicleVan   VehicleType = "van"
	VehicleTruck VehicleType = "truck"
)

// IsValid returns true if the vehicle type is recognized.
func (v VehicleType) IsValid() bool {
	switch v {
	case VehicleBike, VehicleCar, VehicleVan, VehicleTruck:
		return true
	}
	return false
}

// DefaultBaseFare is the flat charge added to every job, in whole currency units.
const DefaultBaseFare int64 = 50

// PricingStrategy defines the interface for estimating job cost.
type PricingStrategy interface {
	// Calculate returns the estimated cost in whole currency units.
	Calculate(params PricingParams) (int64, error)
}

// PricingParams holds the inputs for cost estimation.
type PricingParams struct {
	DistanceMeters int
	VehicleType    VehicleType
}

// StandardPricingStrategy charges a base fare plus a per-km rate that depends on the vehicle.
type StandardPricingStrategy struct {
	baseFare int64
}

// NewStandardPricingStrategy creates a StandardPricingStrategy. A non-positive base fare falls back to DefaultBaseFare.
func NewStandardPricingStrategy(baseFare int64) *StandardPricingStrategy {
	if baseFare <= 0 {
		baseFare = DefaultBaseFare
	}
	return &StandardPricingStrategy{baseFare: baseFare}
}

// Calculate computes baseFare + rate(vehicle) * km, rounded to the nearest unit.
func (s *StandardPricingStrategy) Calculate(params PricingParams) (int64, error) {
	if params.DistanceMeters < 0 {
		return 0, domain.NewValidationError("distance cannot be negative")
	}

	rate, err := PerKmRate(params.VehicleType)
	if err != nil {
		return 0, err
	}

	km := float64(params.DistanceMeters) / 1000
	return int64(math.Round(float64(s.baseFare) + float64(rate)*km)), nil
}

// PerKmRate returns the per-kilometre rate for a vehicle type.
func PerKmRate(v VehicleType) (int64, error) {
	switch v {
	case VehicleBike:
		return 5, nil
	case VehicleCar:
		return 8, nil
	case VehicleVan:
		return 10, nil
	case VehicleTruck:
		return 15, nil
	default:
		return 0, domain.NewUnknownVehicleTypeError(string(v))
	}
}
