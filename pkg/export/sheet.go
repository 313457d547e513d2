package export

// Sheet is positional tabular content ready for rendering. Reports build one
// Sheet and hand it to whichever renderer the client asked for, so CSV and
// PDF always agree on the numbers.
type Sheet struct {
	Title   string
	Headers []string
	Rows    [][]string
}
