package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jclarke67/voice-canvas-scribe/internal/notes"
	"github.com/jclarke67/voice-canvas-scribe/internal/summary"
)

func newSummarizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize",
		Short: "Generate the weekly summary for the previous week now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
			app, err := loadApplication(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.scheduler.RunNow(ctx)
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		},
	}
}

func newNotesCommand() *cobra.Command {
	var (
		folderName string
		tag        string
	)
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "List notes grouped by week, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
			app, err := loadApplication(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			listed := app.repository.Notes()
			if folderName != "" {
				folder, ok := app.repository.FolderByName(folderName)
				if !ok {
					return fmt.Errorf("folder %q not found", folderName)
				}
				listed = app.repository.NotesInFolder(folder.ID)
			}
			if tag != "" {
				listed = slices.DeleteFunc(listed, func(note notes.Note) bool { return !note.HasTag(tag) })
			}
			return renderNoteListing(cmd.OutOrStdout(), listed, time.Local)
		},
	}
	cmd.Flags().StringVar(&folderName, "folder", "", "Only list notes filed under this folder")
	cmd.Flags().StringVar(&tag, "tag", "", "Only list notes carrying this tag")
	return cmd
}

func newPruneAudioCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune-audio",
		Short: "Delete stored audio blobs no recording references",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
			app, err := loadApplication(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			pruned, err := app.repository.PruneOrphanedAudio(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "pruned %d audio blobs\n", pruned)
			return err
		},
	}
}

// renderNoteListing writes one block per creation week, newest week first.
func renderNoteListing(w io.Writer, listed []notes.Note, loc *time.Location) error {
	if len(listed) == 0 {
		_, err := fmt.Fprintln(w, "no notes")
		return err
	}
	grouped := summary.GroupByWeek(listed, loc)
	weeks := make([]string, 0, len(grouped))
	for weekID := range grouped {
		weeks = append(weeks, weekID)
	}
	slices.SortFunc(weeks, func(a, b string) int { return strings.Compare(b, a) })

	for i, weekID := range weeks {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		heading := weekID
		if display, err := summary.WeekDisplay(weekID); err == nil {
			heading = fmt.Sprintf("%s (%s)", weekID, display)
		}
		if _, err := fmt.Fprintln(w, heading); err != nil {
			return err
		}
		for _, note := range notes.SortByUpdated(grouped[weekID]) {
			line := fmt.Sprintf("  %s  %s  pages=%d recordings=%d",
				note.ID, note.DisplayTitle(), len(note.Pages), len(note.Recordings))
			if len(note.Tags) > 0 {
				line += "  #" + strings.Join(note.Tags, " #")
			}
			if note.Synced {
				line += "  [synced]"
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}
