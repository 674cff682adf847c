package export

// Dataset defines tabular export content. Rows are keyed by header name so
// exporters can render columns in header order.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}
