package notes

import (
	"context"
	"sort"
	"strings"
)

// AddTagToNote attaches tag to the note. Blank tags and tags already present are ignored.
func (r *Repository) AddTagToNote(ctx context.Context, noteID, tag string) (Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tag = strings.TrimSpace(tag)
	updated, err := r.mutateNote(ctx, opAddTag, noteID, true, func(note *Note) error {
		if tag == "" || note.HasTag(tag) {
			return errNoChange
		}
		note.Tags = append(note.Tags, tag)
		return nil
	})
	if err != nil {
		return Note{}, err
	}
	r.succeed(opAddTag, "")
	return updated, nil
}

// RemoveTagFromNote detaches tag from the note. Absent tags are ignored.
func (r *Repository) RemoveTagFromNote(ctx context.Context, noteID, tag string) (Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tag = strings.TrimSpace(tag)
	updated, err := r.mutateNote(ctx, opRemoveTag, noteID, true, func(note *Note) error {
		if !note.HasTag(tag) {
			return errNoChange
		}
		kept := make([]string, 0, len(note.Tags)-1)
		for _, existing := range note.Tags {
			if existing != tag {
				kept = append(kept, existing)
			}
		}
		note.Tags = kept
		return nil
	})
	if err != nil {
		return Note{}, err
	}
	r.succeed(opRemoveTag, "")
	return updated, nil
}

// AllTags returns the distinct tags across every note, sorted.
func (r *Repository) AllTags() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{})
	tags := []string{}
	for _, note := range r.notes {
		for _, tag := range note.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}

// NotesWithTag returns the notes carrying tag in collection order.
func (r *Repository) NotesWithTag(tag string) []Note {
	r.mu.Lock()
	defer r.mu.Unlock()

	tag = strings.TrimSpace(tag)
	matches := []Note{}
	for _, note := range r.notes {
		if note.HasTag(tag) {
			matches = append(matches, note.Clone())
		}
	}
	return matches
}
