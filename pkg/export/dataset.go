package export

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	// Summary is printed above the table by renderers that support prose.
	Summary []Field
}

// Field is a labelled summary value.
type Field struct {
	Label string
	Value string
}
