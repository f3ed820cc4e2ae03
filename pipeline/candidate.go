package pipeline

import (
	"fmt"
	"strings"

	"testribute/model"
)

// Candidate is one combination travelling through the stages. Stages never modify a
// candidate they receive; they return copies.
type Candidate struct {
	Index         int
	URIs          model.AccessURIs
	TesIP         string
	Distances     map[string]float64
	TotalDistance float64
	Cost          model.Costs
	Time          float64
}

func describe(uris model.AccessURIs) string {
	parts := []string{fmt.Sprintf("%s=%s", model.TesURIKey, uris.TesURI)}
	for _, id := range uris.ObjectIDs() {
		parts = append(parts, fmt.Sprintf("%s=%s", id, uris.Objects[id]))
	}

	return "{" + strings.Join(parts, ", ") + "}"
}
