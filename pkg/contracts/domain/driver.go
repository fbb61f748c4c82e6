package domain

import (
	"fmt"
	"math"
)

// DriverSetting is a bounded planning assumption passed to forecast generation
type DriverSetting struct {
	ID          string  `json:"id" validate:"required,driverid"`
	Name        string  `json:"name" validate:"required"`
	Value       float64 `json:"value"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max" validate:"gtefield=Min"`
	Step        float64 `json:"step" validate:"gt=0"`
	Description string  `json:"description"`
}

const stepTolerance = 1e-9

// DefaultDrivers returns the stock scenario controls
func DefaultDrivers() []DriverSetting {
	return []DriverSetting{
		{ID: "promo", Name: "Promotion Intensity", Value: 0, Min: -50, Max: 100, Step: 5, Description: "Adjusts the impact of marketing events."},
		{ID: "price", Name: "Price Elasticity", Value: 0, Min: -20, Max: 20, Step: 1, Description: "Simulates sensitivity to price changes."},
		{ID: "season", Name: "Seasonal Strength", Value: 0, Min: -30, Max: 30, Step: 5, Description: "Amplifies or dampens cyclical trends."},
	}
}

// Clamp bounds v to [Min, Max] and snaps it to the nearest step offset from Min
func (d DriverSetting) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return d.Min
	}
	if d.Step > 0 {
		v = d.Min + math.Round((v-d.Min)/d.Step)*d.Step
	}
	if v < d.Min {
		v = d.Min
	}
	if v > d.Max {
		// the top step may overshoot when the range is not a step multiple
		v = d.Max
		if d.Step > 0 {
			v = d.Min + math.Floor((d.Max-d.Min)/d.Step+stepTolerance)*d.Step
		}
	}
	return v
}

// Validate checks that Value is in range and on a step boundary
func (d DriverSetting) Validate() error {
	if d.Max < d.Min {
		return fmt.Errorf("driver %s: max %v below min %v", d.ID, d.Max, d.Min)
	}
	if d.Value < d.Min || d.Value > d.Max {
		return fmt.Errorf("driver %s: value %v outside [%v, %v]", d.ID, d.Value, d.Min, d.Max)
	}
	if d.Step > 0 {
		steps := (d.Value - d.Min) / d.Step
		if math.Abs(steps-math.Round(steps)) > stepTolerance {
			return fmt.Errorf("driver %s: value %v is not a multiple of step %v from %v", d.ID, d.Value, d.Step, d.Min)
		}
	}
	return nil
}

// FindDriver returns the index of the driver with the given id, or -1
func FindDriver(drivers []DriverSetting, id string) int {
	for i, d := range drivers {
		if d.ID == id {
			return i
		}
	}
	return -1
}
