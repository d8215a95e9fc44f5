package telemetry

import (
	"strconv"
	"strings"
)

var measurementEscaper = strings.NewReplacer(",", `\,`, " ", `\ `)

// FormatLine renders a point in InfluxDB line protocol with nanosecond precision:
//
//	co2,animal_count=0,people_count=1 value=2000 1767268800000000000
//
// Tag keys are sorted, as InfluxDB recommends.
func FormatLine(p Point) string {
	var b strings.Builder
	b.WriteString(measurementEscaper.Replace(p.Measurement))
	b.WriteString("," + TagAnimalCount + "=")
	b.WriteString(strconv.Itoa(p.Tags.AnimalCount))
	b.WriteString("," + TagPeopleCount + "=")
	b.WriteString(strconv.Itoa(p.Tags.PeopleCount))
	b.WriteString(" value=")
	b.WriteString(strconv.FormatFloat(p.Value, 'f', -1, 64))
	if !p.Time.IsZero() {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatInt(p.Time.UnixNano(), 10))
	}
	return b.String()
}

// FormatLines renders a batch, one line per point.
func FormatLines(points []Point) string {
	lines := make([]string, len(points))
	for i, p := range points {
		lines[i] = FormatLine(p)
	}
	return strings.Join(lines, "\n")
}
