// Package record defines the crawler boundary: the metadata records the upstream
// publication crawler produces for each discovered document, and the decoding of
// the crawler's JSON dump into typed values.
//
// The crawler is an external collaborator; this package only consumes its output.
package record

import "fmt"

// Publication is one crawler metadata record for a discovered publication.
// Number and Title form the canonical source title; DocumentURL points at the
// downloadable PDF. The remaining fields are descriptive and are folded into
// the persisted source description.
type Publication struct {
	Number           string `json:"Number"`
	Title            string `json:"Title"`
	DocumentURL      string `json:"DocumentUrl"`
	DocumentPath     string `json:"DocumentPath"`
	PubID            string `json:"PubID"`
	Prescribe        string `json:"Prescribe"`
	LastAction       string `json:"LastAction"`
	ReplacementID    string `json:"ReplacementID"`
	Format           string `json:"Format"`
	ProductType      string `json:"ProductType"`
	RescindOrg       string `json:"RescindOrg"`
	RescindDsnPhone  string `json:"RescindDsnPhone"`
	RescindCommPhone string `json:"RescindCommPhone"`
	RescindLevel     string `json:"RescindLevel"`
	FormatLetter     string `json:"FormatLetter"`
	FormatClass      string `json:"FormatClass"`
}

// descriptionFields lists the descriptive fields folded into Description,
// in their fixed output order.
var descriptionFields = []struct {
	name  string
	value func(*Publication) string
}{
	{"PubID", func(p *Publication) string { return p.PubID }},
	{"Prescribe", func(p *Publication) string { return p.Prescribe }},
	{"LastAction", func(p *Publication) string { return p.LastAction }},
	{"ReplacementID", func(p *Publication) string { return p.ReplacementID }},
	{"Format", func(p *Publication) string { return p.Format }},
	{"ProductType", func(p *Publication) string { return p.ProductType }},
	{"RescindOrg", func(p *Publication) string { return p.RescindOrg }},
	{"RescindDsnPhone", func(p *Publication) string { return p.RescindDsnPhone }},
	{"RescindCommPhone", func(p *Publication) string { return p.RescindCommPhone }},
	{"RescindLevel", func(p *Publication) string { return p.RescindLevel }},
	{"FormatLetter", func(p *Publication) string { return p.FormatLetter }},
	{"FormatClass", func(p *Publication) string { return p.FormatClass }},
}

// CanonicalTitle returns the "<number>: <title>" string that identifies the
// source. This exact string is the join key for source resolution, so its
// format must match what was persisted at source-save time.
func (p *Publication) CanonicalTitle() string {
	return fmt.Sprintf("%s: %s", p.Number, p.Title)
}

// Description concatenates the descriptive metadata fields into a single
// free-text description for the persisted source.
func (p *Publication) Description() string {
	out := ""
	for i, f := range descriptionFields {
		if i > 0 {
			out += ". "
		}
		out += f.name + ": " + f.value(p)
	}
	return out
}
