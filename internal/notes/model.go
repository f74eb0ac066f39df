package notes

import (
	"errors"
	"strings"
)

const (
	// UntitledPlaceholder is displayed in place of an empty note title.
	UntitledPlaceholder = "Untitled Note"
)

var (
	// ErrNoteNotFound indicates that no note carries the requested identifier.
	ErrNoteNotFound = errors.New("notes: note not found")
	// ErrFolderNotFound indicates that no folder carries the requested identifier.
	ErrFolderNotFound = errors.New("notes: folder not found")
	// ErrRecordingNotFound indicates that the note holds no recording with the requested identifier.
	ErrRecordingNotFound = errors.New("notes: recording not found")
	// ErrPageIndexOutOfRange indicates that a page index does not address an existing page.
	ErrPageIndexOutOfRange = errors.New("notes: page index out of range")
	// ErrOnlyPage indicates an attempt to delete the only page of a note.
	ErrOnlyPage = errors.New("notes: cannot delete the only page")
	// ErrNoPages indicates a note value without any page.
	ErrNoPages = errors.New("notes: note must have at least one page")
	// ErrInvalidFolderName indicates an empty folder name.
	ErrInvalidFolderName = errors.New("notes: invalid folder name")
	// ErrAudioNotFound indicates that the blob backing a recording is missing from storage.
	ErrAudioNotFound = errors.New("notes: audio not found")
)

// Recording is a voice attachment referencing an audio blob by storage key.
type Recording struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	AudioURL string `json:"audioUrl"`
	// Duration in seconds.
	Duration float64 `json:"duration"`
	// Timestamp is the advisory cursor offset within the page content.
	Timestamp       float64 `json:"timestamp"`
	CreatedAtMillis int64   `json:"createdAt"`
}

// Page is one ordered content unit of a note.
type Page struct {
	ID         string      `json:"id"`
	Content    string      `json:"content"`
	Recordings []Recording `json:"recordings"`
}

// Note is a multi-page document. Recordings mirrors the union of every page's recordings.
type Note struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	// LegacyContent holds the body of notes stored before pages existed.
	LegacyContent    string      `json:"content,omitempty"`
	Pages            []Page      `json:"pages"`
	CurrentPageIndex int         `json:"currentPageIndex"`
	Recordings       []Recording `json:"recordings"`
	Tags             []string    `json:"tags"`
	FolderID         string      `json:"folderId,omitempty"`
	CreatedAtMillis  int64       `json:"createdAt"`
	UpdatedAtMillis  int64       `json:"updatedAt"`
	Synced           bool        `json:"synced"`
}

// Folder groups notes. Deleting one leaves its notes unfiled.
type Folder struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	CreatedAtMillis int64  `json:"createdAt"`
}

// RecordingInput carries the captured audio to register as a recording.
type RecordingInput struct {
	AudioURL        string
	Duration        float64
	Timestamp       float64
	CreatedAtMillis int64
}

// RecordingUpdate is a partial update; nil fields are left untouched.
type RecordingUpdate struct {
	Name      *string  `json:"name,omitempty"`
	Duration  *float64 `json:"duration,omitempty"`
	Timestamp *float64 `json:"timestamp,omitempty"`
}

func (u RecordingUpdate) apply(recording Recording) Recording {
	if u.Name != nil {
		recording.Name = *u.Name
	}
	if u.Duration != nil {
		recording.Duration = *u.Duration
	}
	if u.Timestamp != nil {
		recording.Timestamp = *u.Timestamp
	}
	return recording
}

// DisplayTitle returns the title or the untitled placeholder.
func (n Note) DisplayTitle() string {
	if strings.TrimSpace(n.Title) == "" {
		return UntitledPlaceholder
	}
	return n.Title
}

// HasTag reports whether the note carries tag.
func (n Note) HasTag(tag string) bool {
	for _, existing := range n.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// Content joins the content of all pages in order.
func (n Note) Content() string {
	if len(n.Pages) == 0 {
		return n.LegacyContent
	}
	parts := make([]string, 0, len(n.Pages))
	for _, page := range n.Pages {
		parts = append(parts, page.Content)
	}
	return strings.Join(parts, "\n")
}

// AudioRefs returns every distinct blob reference held by the note.
func (n Note) AudioRefs() []string {
	seen := make(map[string]struct{})
	var refs []string
	add := func(recording Recording) {
		if recording.AudioURL == "" {
			return
		}
		if _, ok := seen[recording.AudioURL]; ok {
			return
		}
		seen[recording.AudioURL] = struct{}{}
		refs = append(refs, recording.AudioURL)
	}
	for _, recording := range n.Recordings {
		add(recording)
	}
	for _, page := range n.Pages {
		for _, recording := range page.Recordings {
			add(recording)
		}
	}
	return refs
}

// Clone returns a deep copy. Slices of the copy are never nil.
func (n Note) Clone() Note {
	clone := n
	clone.Pages = make([]Page, len(n.Pages))
	for i, page := range n.Pages {
		clone.Pages[i] = Page{
			ID:         page.ID,
			Content:    page.Content,
			Recordings: cloneRecordings(page.Recordings),
		}
	}
	clone.Recordings = cloneRecordings(n.Recordings)
	clone.Tags = append(make([]string, 0, len(n.Tags)), n.Tags...)
	return clone
}

func cloneRecordings(recordings []Recording) []Recording {
	return append(make([]Recording, 0, len(recordings)), recordings...)
}

func cloneNotes(notes []Note) []Note {
	clones := make([]Note, len(notes))
	for i, note := range notes {
		clones[i] = note.Clone()
	}
	return clones
}

func clampIndex(index, length int) int {
	if length <= 0 || index < 0 {
		return 0
	}
	if index >= length {
		return length - 1
	}
	return index
}

// reconcileRecordings restores the invariant that the flattened recording list and the
// per-page lists hold the same multiset of recording ids. Flattened recordings missing
// from every page are attached to the current page; page recordings missing from the
// flattened list are appended to it. Pages must be non-empty.
func reconcileRecordings(note *Note) {
	note.CurrentPageIndex = clampIndex(note.CurrentPageIndex, len(note.Pages))

	pageCounts := make(map[string]int)
	for _, page := range note.Pages {
		for _, recording := range page.Recordings {
			pageCounts[recording.ID]++
		}
	}

	flatCounts := make(map[string]int)
	for _, recording := range note.Recordings {
		flatCounts[recording.ID]++
		if flatCounts[recording.ID] > pageCounts[recording.ID] {
			current := &note.Pages[note.CurrentPageIndex]
			current.Recordings = append(current.Recordings, recording)
			pageCounts[recording.ID]++
		}
	}

	seen := make(map[string]int)
	for _, page := range note.Pages {
		for _, recording := range page.Recordings {
			seen[recording.ID]++
			if seen[recording.ID] > flatCounts[recording.ID] {
				note.Recordings = append(note.Recordings, recording)
				flatCounts[recording.ID]++
			}
		}
	}
}
