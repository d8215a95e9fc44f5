// Package telemetry publishes cabin measurements to time-series backends.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/cabin-monitor/internal/logic"
)

// Measurement names.
const (
	MeasurementCO2         = "co2"
	MeasurementTemperature = "temperature"
	MeasurementHumidity    = "relative_humidity"
	MeasurementEntities    = "num_entities"
)

// Tag keys.
const (
	TagPeopleCount = "people_count"
	TagAnimalCount = "animal_count"
)

// Tags are the detection counts attached to every point.
type Tags struct {
	PeopleCount int
	AnimalCount int
}

// Point is one numeric sample of a measurement.
type Point struct {
	Measurement string
	Tags        Tags
	Value       float64
	Time        time.Time
}

// Sink accepts batches of points.
type Sink interface {
	// Publish sends the points. Returns error if publishing fails (should not crash the process).
	Publish(ctx context.Context, points []Point) error
}

// Points builds the per-iteration batch: CO2, temperature, relative humidity
// and the number of living entities, each tagged with the detection counts.
func Points(co2, temperature, humidity float64, count logic.DetectionCount, at time.Time) []Point {
	tags := Tags{PeopleCount: count.People, AnimalCount: count.Animals}
	return []Point{
		{Measurement: MeasurementCO2, Tags: tags, Value: co2, Time: at},
		{Measurement: MeasurementTemperature, Tags: tags, Value: temperature, Time: at},
		{Measurement: MeasurementHumidity, Tags: tags, Value: humidity, Time: at},
		{Measurement: MeasurementEntities, Tags: tags, Value: float64(count.Total()), Time: at},
	}
}

// Fanout publishes to every sink, continuing past failures.
type Fanout []Sink

// Publish sends points to all sinks and returns the joined errors.
func (f Fanout) Publish(ctx context.Context, points []Point) error {
	var errs []error
	for i, s := range f {
		if err := s.Publish(ctx, points); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
