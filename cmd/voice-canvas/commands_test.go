package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jclarke67/voice-canvas-scribe/internal/notes"
)

func TestRenderNoteListingGroupsByWeek(t *testing.T) {
	at := func(month time.Month, day int) int64 {
		return time.Date(2026, month, day, 9, 0, 0, 0, time.UTC).UnixMilli()
	}
	listed := []notes.Note{
		{ID: "a", Title: "Planning", Pages: []notes.Page{{}}, CreatedAtMillis: at(time.February, 24), UpdatedAtMillis: at(time.February, 24)},
		{ID: "b", Pages: []notes.Page{{}, {}}, Tags: []string{"retro"}, Synced: true, CreatedAtMillis: at(time.February, 25), UpdatedAtMillis: at(time.March, 3)},
		{ID: "c", Title: "This week", Pages: []notes.Page{{}}, CreatedAtMillis: at(time.March, 2), UpdatedAtMillis: at(time.March, 2)},
	}

	var out bytes.Buffer
	if err := renderNoteListing(&out, listed, time.UTC); err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	want := strings.Join([]string{
		"2026-W10 (Week 10, 2026)",
		"  c  This week  pages=1 recordings=0",
		"",
		"2026-W09 (Week 9, 2026)",
		"  b  Untitled Note  pages=2 recordings=0  #retro  [synced]",
		"  a  Planning  pages=1 recordings=0",
		"",
	}, "\n")
	if out.String() != want {
		t.Fatalf("unexpected listing:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestRenderNoteListingEmpty(t *testing.T) {
	var out bytes.Buffer
	if err := renderNoteListing(&out, nil, time.UTC); err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if out.String() != "no notes\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}
