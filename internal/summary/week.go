package summary

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jclarke67/voice-canvas-scribe/internal/notes"
)

// weeksPerYear is used when rolling week 1 back into the previous year.
// Years with 53 weeks are not accounted for.
const weeksPerYear = 52

const summaryTitlePrefix = "Weekly Summary:"

var (
	// ErrInvalidWeekID indicates a week identifier not shaped like YYYY-Www.
	ErrInvalidWeekID = errors.New("summary: invalid week id")

	summaryTitlePattern = regexp.MustCompile(`Weekly Summary: Week (\d+), (\d+)`)
)

// WeekID returns the YYYY-Www identifier of t in t's location. Weeks start on Sunday and
// week 1 is the partial week holding January 1st.
func WeekID(t time.Time) string {
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	week := (t.YearDay() + int(jan1.Weekday()) + 6) / 7
	return formatWeekID(t.Year(), week)
}

// ParseWeekID splits a YYYY-Www identifier into year and week number.
func ParseWeekID(weekID string) (int, int, error) {
	yearPart, weekPart, found := strings.Cut(weekID, "-W")
	if !found {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidWeekID, weekID)
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidWeekID, weekID)
	}
	week, err := strconv.Atoi(weekPart)
	if err != nil || week < 1 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidWeekID, weekID)
	}
	return year, week, nil
}

// PreviousWeekID returns the identifier of the week before weekID.
func PreviousWeekID(weekID string) (string, error) {
	year, week, err := ParseWeekID(weekID)
	if err != nil {
		return "", err
	}
	if week > 1 {
		return formatWeekID(year, week-1), nil
	}
	return formatWeekID(year-1, weeksPerYear), nil
}

// WeekDisplay renders weekID as "Week <n>, <year>".
func WeekDisplay(weekID string) (string, error) {
	year, week, err := ParseWeekID(weekID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Week %d, %d", week, year), nil
}

// Title returns the summary note title for weekID.
func Title(weekID string) (string, error) {
	display, err := WeekDisplay(weekID)
	if err != nil {
		return "", err
	}
	return summaryTitlePrefix + " " + display, nil
}

// IsSummaryTitle reports whether title belongs to a generated summary note.
func IsSummaryTitle(title string) bool {
	return strings.HasPrefix(title, summaryTitlePrefix)
}

// WeekIDFromTitle recovers the week covered by a summary note title.
func WeekIDFromTitle(title string) (string, bool) {
	match := summaryTitlePattern.FindStringSubmatch(title)
	if match == nil {
		return "", false
	}
	week, err := strconv.Atoi(match[1])
	if err != nil {
		return "", false
	}
	year, err := strconv.Atoi(match[2])
	if err != nil {
		return "", false
	}
	return formatWeekID(year, week), true
}

// GroupByWeek buckets notes by the week of their creation time in loc.
func GroupByWeek(all []notes.Note, loc *time.Location) map[string][]notes.Note {
	grouped := make(map[string][]notes.Note)
	for _, note := range all {
		weekID := WeekID(time.UnixMilli(note.CreatedAtMillis).In(loc))
		grouped[weekID] = append(grouped[weekID], note)
	}
	return grouped
}

func formatWeekID(year, week int) string {
	return fmt.Sprintf("%d-W%02d", year, week)
}
