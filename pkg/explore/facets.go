package explore

import (
	"sort"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// facetID identifies a facet category.
type facetID int

const (
	facetBrand facetID = iota
	facetTrack
	facetStatus
	facetExtension
)

// facetDef defines a facet category.
type facetDef struct {
	ID    facetID
	Label string
}

var facetDefs = []facetDef{
	{facetBrand, "Brand"},
	{facetTrack, "Track"},
	{facetStatus, "Status"},
	{facetExtension, "Extension"},
}

// facetValue is a single selectable value within a facet.
type facetValue struct {
	FacetID  facetID
	Value    string
	Count    int
	Selected bool
}

// facetState holds the complete filter state.
type facetState struct {
	Values map[facetID][]*facetValue
}

func newFacetState() *facetState {
	return &facetState{
		Values: make(map[facetID][]*facetValue),
	}
}

// buildFacets builds facet values from findings data.
func buildFacets(findings []*findingRow) *facetState {
	fs := newFacetState()

	counts := make(map[facetID]map[string]int)
	for _, def := range facetDefs {
		counts[def.ID] = make(map[string]int)
	}
	for _, f := range findings {
		for _, def := range facetDefs {
			for _, v := range f.facetValues(def.ID) {
				counts[def.ID][v]++
			}
		}
	}

	for _, def := range facetDefs {
		fs.Values[def.ID] = mapToFacetValues(def.ID, counts[def.ID])
	}
	return fs
}

func mapToFacetValues(id facetID, counts map[string]int) []*facetValue {
	values := make([]*facetValue, 0, len(counts))
	for v, c := range counts {
		values = append(values, &facetValue{FacetID: id, Value: v, Count: c})
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i].Value < values[j].Value
	})
	return values
}

// selectedValues returns the set of selected values for a facet.
func (fs *facetState) selectedValues(id facetID) map[string]bool {
	selected := make(map[string]bool)
	for _, v := range fs.Values[id] {
		if v.Selected {
			selected[v.Value] = true
		}
	}
	return selected
}

// hasActiveFilters returns true if any facet has selections.
func (fs *facetState) hasActiveFilters() bool {
	for _, values := range fs.Values {
		for _, v := range values {
			if v.Selected {
				return true
			}
		}
	}
	return false
}

// resetAll deselects all facet values.
func (fs *facetState) resetAll() {
	for _, values := range fs.Values {
		for _, v := range values {
			v.Selected = false
		}
	}
}

// matchesFinding returns true if a finding passes all active filters.
// Within a facet: OR (union). Across facets: AND (intersection).
func (fs *facetState) matchesFinding(f *findingRow) bool {
	for _, def := range facetDefs {
		selected := fs.selectedValues(def.ID)
		if len(selected) == 0 {
			continue
		}
		found := false
		for _, v := range f.facetValues(def.ID) {
			if selected[v] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// updateCounts recounts facet values based on currently visible findings.
func (fs *facetState) updateCounts(findings []*findingRow) {
	for _, values := range fs.Values {
		for _, v := range values {
			v.Count = 0
		}
	}

	for _, f := range findings {
		if !fs.matchesFinding(f) {
			continue
		}
		for _, def := range facetDefs {
			for _, fv := range f.facetValues(def.ID) {
				for _, v := range fs.Values[def.ID] {
					if v.Value == fv {
						v.Count++
					}
				}
			}
		}
	}
}

// findingRow is the denormalized view model for a finding in the TUI.
// Built from types.Finding + types.Match data.
type findingRow struct {
	FindingID        string
	Brand            string
	Number           string // masked when the explorer runs with masking
	MatchCount       int
	FileCount        int
	Tracks           []string // "TRACK_1", "TRACK_2" or "-"
	Extensions       []string
	AnnotationStatus string // "accept", "reject", or ""
	Comment          string
	Matches          []*matchRow
}

// facetValues returns the values f contributes to facet id.
func (f *findingRow) facetValues(id facetID) []string {
	switch id {
	case facetBrand:
		return []string{f.Brand}
	case facetTrack:
		return f.Tracks
	case facetStatus:
		if f.AnnotationStatus == "" {
			return []string{"-"}
		}
		return []string{f.AnnotationStatus}
	case facetExtension:
		return f.Extensions
	}
	return nil
}

// trackSummary is the Track column text.
func (f *findingRow) trackSummary() string {
	var out string
	for _, t := range f.Tracks {
		if t == "-" {
			continue
		}
		if out != "" {
			out += ","
		}
		switch t {
		case types.Track1:
			out += "1"
		case types.Track2:
			out += "2"
		default:
			out += t
		}
	}
	return out
}

// matchRow is the denormalized view model for a match.
type matchRow struct {
	StructuralID     string
	BlobID           types.BlobID
	RuleID           string
	Track            string
	Location         types.Location
	Provenance       []types.Provenance
	AnnotationStatus string
	Comment          string
}
