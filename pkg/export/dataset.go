package export

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
	// Footer lines are rendered after the table, e.g. GPA and ECTS totals.
	Footer []FooterLine
}

// FooterLine is a labelled summary value.
type FooterLine struct {
	Label string
	Value string
}
