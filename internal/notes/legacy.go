package notes

// UpgradeLegacyNotes converts notes stored before pages existed into the paged shape.
// A note without pages receives one page holding its legacy content and a copy of its
// recordings. Missing slices are materialized and recording lists are reconciled.
// The boolean reports whether any note changed.
func UpgradeLegacyNotes(stored []Note, ids IDProvider) ([]Note, bool, error) {
	upgraded := make([]Note, len(stored))
	changed := false
	for i, original := range stored {
		note := original.Clone()
		if len(note.Pages) == 0 {
			pageID, err := ids.NewID()
			if err != nil {
				return nil, false, err
			}
			note.Pages = []Page{{
				ID:         pageID,
				Content:    note.LegacyContent,
				Recordings: cloneRecordings(note.Recordings),
			}}
			note.LegacyContent = ""
			note.CurrentPageIndex = 0
			changed = true
		}
		if original.Tags == nil || original.Recordings == nil {
			changed = true
		}
		for _, page := range original.Pages {
			if page.Recordings == nil {
				changed = true
			}
		}
		before := recordingCount(note)
		beforeIndex := note.CurrentPageIndex
		reconcileRecordings(&note)
		if recordingCount(note) != before || note.CurrentPageIndex != beforeIndex {
			changed = true
		}
		upgraded[i] = note
	}
	return upgraded, changed, nil
}

func recordingCount(note Note) int {
	count := len(note.Recordings)
	for _, page := range note.Pages {
		count += len(page.Recordings)
	}
	return count
}
