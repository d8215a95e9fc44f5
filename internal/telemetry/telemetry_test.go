package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/cabin-monitor/internal/logic"
)

func TestPoints(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	points := Points(2000, 30, 50, logic.DetectionCount{People: 1, Animals: 2}, at)

	if len(points) != 4 {
		t.Fatalf("expected 4 points, got %d", len(points))
	}

	want := []struct {
		measurement string
		value       float64
	}{
		{MeasurementCO2, 2000},
		{MeasurementTemperature, 30},
		{MeasurementHumidity, 50},
		{MeasurementEntities, 3},
	}
	for i, w := range want {
		p := points[i]
		if p.Measurement != w.measurement {
			t.Errorf("point %d: measurement %q, want %q", i, p.Measurement, w.measurement)
		}
		if p.Value != w.value {
			t.Errorf("point %d: value %v, want %v", i, p.Value, w.value)
		}
		if p.Tags.PeopleCount != 1 || p.Tags.AnimalCount != 2 {
			t.Errorf("point %d: tags %+v", i, p.Tags)
		}
		if !p.Time.Equal(at) {
			t.Errorf("point %d: time %v", i, p.Time)
		}
	}
}

func TestFormatLine(t *testing.T) {
	p := Point{
		Measurement: MeasurementCO2,
		Tags:        Tags{PeopleCount: 1, AnimalCount: 0},
		Value:       2000.5,
		Time:        time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	want := "co2,animal_count=0,people_count=1 value=2000.5 1767268800000000000"
	if got := FormatLine(p); got != want {
		t.Errorf("FormatLine:\n got %s\nwant %s", got, want)
	}
}

func TestFormatLineEscapesMeasurement(t *testing.T) {
	got := FormatLine(Point{Measurement: "cabin air,v2", Value: 1})
	want := `cabin\ air\,v2,animal_count=0,people_count=0 value=1`
	if got != want {
		t.Errorf("FormatLine:\n got %s\nwant %s", got, want)
	}
}

func TestFormatLines(t *testing.T) {
	points := Points(400, 20, 45, logic.DetectionCount{}, time.Time{})
	lines := strings.Split(FormatLines(points), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[3] != "num_entities,animal_count=0,people_count=0 value=0" {
		t.Errorf("unexpected entities line: %s", lines[3])
	}
}

func TestFanoutPublishesToAll(t *testing.T) {
	a, b := NewFakeSink(), NewFakeSink()
	points := Points(400, 20, 45, logic.DetectionCount{}, time.Time{})

	if err := (Fanout{a, b}).Publish(context.Background(), points); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(a.Batches) != 1 || len(b.Batches) != 1 {
		t.Errorf("expected one batch per sink, got %d and %d", len(a.Batches), len(b.Batches))
	}
}

func TestFanoutContinuesPastFailure(t *testing.T) {
	a, b := NewFakeSink(), NewFakeSink()
	a.PublishError = errors.New("influx down")

	err := (Fanout{a, b}).Publish(context.Background(), Points(1, 2, 3, logic.DetectionCount{}, time.Time{}))
	if err == nil {
		t.Fatal("expected joined error")
	}
	if !strings.Contains(err.Error(), "influx down") {
		t.Errorf("error does not mention failing sink: %v", err)
	}
	if len(b.Batches) != 1 {
		t.Error("second sink should still receive the batch")
	}
}

func TestFakeSinkReset(t *testing.T) {
	f := NewFakeSink()
	f.Publish(context.Background(), []Point{{Measurement: "co2"}})
	if len(f.Points()) != 1 {
		t.Fatalf("expected 1 point, got %d", len(f.Points()))
	}
	f.Reset()
	if len(f.Points()) != 0 {
		t.Error("Reset should clear points")
	}
}
