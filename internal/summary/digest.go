package summary

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/jclarke67/voice-canvas-scribe/internal/notes"
)

const excerptLimit = 150

// Digest renders the markdown body of a weekly summary covering sources.
// Sources are listed in ascending creation order; dates are rendered in loc.
func Digest(sources []notes.Note, loc *time.Location) string {
	if len(sources) == 0 {
		return ""
	}
	sorted := append([]notes.Note(nil), sources...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAtMillis < sorted[j].CreatedAtMillis
	})

	var b strings.Builder
	b.WriteString("# Weekly Summary\n\n")
	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "This summary contains %d notes from %s to %s\n\n",
		len(sorted),
		formatDate(sorted[0].CreatedAtMillis, loc),
		formatDate(sorted[len(sorted)-1].CreatedAtMillis, loc))
	b.WriteString("## Note Summaries\n\n")

	for i, note := range sorted {
		fmt.Fprintf(&b, "### %d. %s\n", i+1, note.DisplayTitle())
		fmt.Fprintf(&b, "*Created: %s*\n\n", formatDate(note.CreatedAtMillis, loc))
		fmt.Fprintf(&b, "%s\n\n", Excerpt(note.Content()))
		if count := len(note.Recordings); count > 0 {
			plural := ""
			if count > 1 {
				plural = "s"
			}
			fmt.Fprintf(&b, "*This note has %d voice recording%s*\n\n", count, plural)
		}
	}
	return b.String()
}

// Excerpt strips markup from content and truncates the text to 150 characters,
// appending "..." when truncated.
func Excerpt(content string) string {
	text := []rune(plainText(content))
	if len(text) <= excerptLimit {
		return string(text)
	}
	return string(text[:excerptLimit]) + "..."
}

func plainText(content string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(content))
	var parts []string
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if tokenizer.Err() != io.EOF {
				return strings.Join(strings.Fields(content), " ")
			}
			return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
		case html.TextToken:
			parts = append(parts, string(tokenizer.Text()))
		}
	}
}

func formatDate(millis int64, loc *time.Location) string {
	return time.UnixMilli(millis).In(loc).Format(time.DateOnly)
}
