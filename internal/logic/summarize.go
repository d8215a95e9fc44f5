package logic

import "strings"

// Default label sets. The detector (SSD-Mobilenet-v2, COCO classes) reports
// the singular "dog".
var (
	DefaultPersonLabels = []string{"person"}
	DefaultAnimalLabels = []string{"dog"}
)

// Summarizer reduces a frame's detections to counts of people and animals.
type Summarizer struct {
	people  map[string]struct{}
	animals map[string]struct{}
}

// NewSummarizer creates a Summarizer for the given label sets.
// Labels are matched exactly after trimming surrounding whitespace.
func NewSummarizer(personLabels, animalLabels []string) Summarizer {
	return Summarizer{
		people:  labelSet(personLabels),
		animals: labelSet(animalLabels),
	}
}

// Summarize counts detections whose label is a person or animal label.
// Other labels are ignored. A label present in both sets counts as a person.
func (s Summarizer) Summarize(detections []Detection) DetectionCount {
	var c DetectionCount
	for _, d := range detections {
		label := strings.TrimSpace(d.Label)
		if _, ok := s.people[label]; ok {
			c.People++
			continue
		}
		if _, ok := s.animals[label]; ok {
			c.Animals++
		}
	}
	return c
}

func labelSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		set[l] = struct{}{}
	}
	return set
}
