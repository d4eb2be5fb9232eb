package search

// FileResult is one report entry: a file with at least one match, or a file
// that failed to read, decode or write. Saved is nil on dry runs, true for
// committed rewrites and false for files whose commit failed.
type FileResult struct {
	File       string `json:"file"`
	MatchCount int    `json:"match_count"`
	Preview    string `json:"preview,omitempty"`
	Saved      *bool  `json:"saved,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Report is the outcome of one search-replace invocation. Results follow
// walker order; zero-match files are omitted unless they errored.
type Report struct {
	DryRun       bool         `json:"dry_run"`
	FilesScanned int          `json:"files_scanned"`
	Results      []FileResult `json:"results"`
}

// Errored returns the number of per-file errors in the report.
func (r *Report) Errored() int {
	n := 0
	for i := range r.Results {
		if r.Results[i].Error != "" {
			n++
		}
	}
	return n
}
