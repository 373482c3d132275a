package extract

import (
	"sort"
	"time"
)

// LeadRecord is one parsed notification email. ID is the stable message
// identifier assigned by the mail store and is never reused. Fields maps
// canonical field names to extracted values; every catalogue field is
// present, possibly empty, and unknown labels from the source are kept
// under their raw label.
type LeadRecord struct {
	ID         string
	Subject    string
	Sender     string
	ReceivedAt time.Time
	Fields     map[string]string
}

// Get returns a field value, or "" when absent.
func (r *LeadRecord) Get(name string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}

// Set stores a field value.
func (r *LeadRecord) Set(name, value string) {
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	r.Fields[name] = value
}

// ExtraFields returns the labels present on the record that are not part
// of the catalogue, sorted for stable output.
func (r *LeadRecord) ExtraFields() []string {
	var extras []string
	for name := range r.Fields {
		if !IsKnownField(name) {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	return extras
}
