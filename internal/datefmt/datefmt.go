// Package datefmt renders event instants for humans. Patterns use the
// tokens organizers type in the event settings (YYYY, MMMM, MMM, MM, DD,
// HH, mm, ss); every other character is copied verbatim.
//
// Nothing in this package returns an error: a bad timezone falls back to
// UTC and absent instants render as fixed placeholders.
package datefmt

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone database embedded so rendering does not depend on the host
)

// Placeholders for absent instants.
const (
	DateTBA       = "Date TBA"
	NotAvailable  = "N/A"
	windowDivider = " – "
)

// DefaultPattern is used when a schedule carries no pattern.
const DefaultPattern = "MM/DD/YYYY HH:mm"

// Schedule is the display-relevant part of an event. A zero Start or End
// means the instant is unknown. A nil/zero End makes the event single-day
// regardless of IsSingleDay.
type Schedule struct {
	Start       time.Time
	End         time.Time
	Timezone    string
	IsAllDay    bool
	IsSingleDay bool
	Pattern     string
}

// RenderEventWindow renders the start/end window of an event.
func RenderEventWindow(s Schedule) string {
	hasStart, hasEnd := !s.Start.IsZero(), !s.End.IsZero()
	if !hasStart && !hasEnd {
		return DateTBA
	}
	loc := Location(s.Timezone)
	pattern := s.Pattern
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}
	if s.IsAllDay {
		pattern = DateOnly(pattern)
	}

	sameDay := hasStart && hasEnd && SameCalendarDay(s.Start, s.End, loc)
	switch {
	case (s.IsSingleDay || sameDay) && hasStart:
		return Format(s.Start, pattern, loc)
	case hasStart && hasEnd:
		return Format(s.Start, pattern, loc) + windowDivider + Format(s.End, pattern, loc)
	case hasStart:
		return Format(s.Start, pattern, loc)
	default:
		return Format(s.End, pattern, loc)
	}
}

// RenderLongDate renders an instant as e.g.
// "Sunday, June 1, 2025 at 6:00 PM PDT". Zero instants render as "N/A".
func RenderLongDate(t time.Time, timezone string) string {
	if t.IsZero() {
		return NotAvailable
	}
	return t.In(Location(timezone)).Format("Monday, January 2, 2006 at 3:04 PM MST")
}

// TimezoneAbbreviation returns the current abbreviation of a zone, e.g.
// "PST" for America/Los_Angeles in winter.
func TimezoneAbbreviation(timezone string) string {
	return TimezoneAbbreviationAt(timezone, time.Now())
}

// TimezoneAbbreviationAt is TimezoneAbbreviation for a specific instant,
// which matters for zones with daylight saving time.
func TimezoneAbbreviationAt(timezone string, at time.Time) string {
	name, _ := at.In(Location(timezone)).Zone()
	return name
}

// Location resolves an IANA zone name. Empty or unknown names yield UTC.
func Location(timezone string) *time.Location {
	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ValidTimezone reports whether name is a known IANA zone.
func ValidTimezone(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// SameCalendarDay reports whether a and b fall on the same date in loc.
func SameCalendarDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

var timeTokens = regexp.MustCompile(`[\s,T@]*HH(:mm)?(:ss)?|[\s,T@:]*mm(:ss)?|[\s,:]*ss`)

// DateOnly strips hour, minute and second tokens (with the separators that
// precede them) from a pattern, e.g. "MM/DD/YYYY HH:mm" -> "MM/DD/YYYY".
func DateOnly(pattern string) string {
	out := strings.TrimSpace(timeTokens.ReplaceAllString(pattern, ""))
	out = strings.TrimRight(out, " ,@-")
	if out == "" {
		return "MM/DD/YYYY"
	}
	return out
}

// tokens are matched longest first so MMMM never renders as two MMs.
var tokens = []string{"YYYY", "MMMM", "MMM", "MM", "DD", "HH", "mm", "ss"}

// Format renders t in loc using a token pattern.
func Format(t time.Time, pattern string, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)

	var b strings.Builder
	for i := 0; i < len(pattern); {
		tok := matchToken(pattern[i:])
		if tok == "" {
			b.WriteByte(pattern[i])
			i++
			continue
		}
		b.WriteString(renderToken(t, tok))
		i += len(tok)
	}
	return b.String()
}

func matchToken(s string) string {
	for _, tok := range tokens {
		if strings.HasPrefix(s, tok) {
			return tok
		}
	}
	return ""
}

func renderToken(t time.Time, tok string) string {
	switch tok {
	case "YYYY":
		return strconv.Itoa(t.Year())
	case "MMMM":
		return t.Month().String()
	case "MMM":
		return t.Month().String()[:3]
	case "MM":
		return pad2(int(t.Month()))
	case "DD":
		return pad2(t.Day())
	case "HH":
		return pad2(t.Hour())
	case "mm":
		return pad2(t.Minute())
	case "ss":
		return pad2(t.Second())
	}
	return tok
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
