package schema

// Summarized is implemented by report rows that carry a computed StatSummary.
// Such rows are recorded in the history store.
type Summarized interface {
	GroupKey() string
	Summary() StatSummary
}

// Section is one titled table of a report. Rows are arbitrarily nested records.
type Section struct {
	Title string `json:"title"`
	Rows  []any  `json:"rows"`
}

// Report is the result of one report command.
type Report struct {
	Title        string    `json:"title"`
	Sections     []Section `json:"sections"`
	Skipped      int       `json:"skipped"`
	FailedGroups []string  `json:"failed_groups,omitempty"`
}

// AddSection appends a section and returns a pointer to it.
func (r *Report) AddSection(title string) *Section {
	r.Sections = append(r.Sections, Section{Title: title, Rows: []any{}})
	return &r.Sections[len(r.Sections)-1]
}

// TotalRows returns the number of rows across all sections.
func (r *Report) TotalRows() int {
	total := 0
	for _, s := range r.Sections {
		total += len(s.Rows)
	}
	return total
}
