package watcher

// ChangeAnalysis says how the server should react to a debounced change
type ChangeAnalysis struct {
	NeedReload   bool // re-read the metadata file
	FileRemoved  bool // keep the current dataset and wait for the file to return
	ChangedFiles []string
}

// AnalyzeChanges decides whether a change requires reloading the dataset.
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{ChangedFiles: event.Paths}

	switch event.Type {
	case ChangeTypeWritten:
		analysis.NeedReload = true
	case ChangeTypeRemoved:
		analysis.FileRemoved = true
	}
	return analysis
}
