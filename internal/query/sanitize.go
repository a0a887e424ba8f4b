package query

import (
	"regexp"
	"strings"
)

// redactionMarker replaces bare UUIDs in sanitized output.
const redactionMarker = "[ID_REMOVED]"

// Identifier-bearing key/value pairs in quoted or bare form, then any
// UUID-shaped residue.
var (
	idPairRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)user_id["']?\s*[:=]\s*["']?[a-f0-9-]{8,}["']?`),
		regexp.MustCompile(`(?i)log_id["']?\s*[:=]\s*["']?[a-f0-9-]{8,}["']?`),
		regexp.MustCompile(`(?i)task_id["']?\s*[:=]\s*["']?[a-f0-9-]{8,}["']?`),
	}
	uuidRe = regexp.MustCompile(`(?i)\b[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}\b`)

	unitOfTimeRe = regexp.MustCompile(`(?i)\bunit of time\b`)
	hourSuffixRe = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*hr\b`)
	durationRe   = regexp.MustCompile(`(?i)(duration\s*:\s*\d+(?:\.\d+)?)(\s*hrs?\b)?`)

	blankLinesRe = regexp.MustCompile(`\n\s*\n`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	firstPersonRe = regexp.MustCompile(`\bI (completed|did|worked on)\b`)
	workedOnByRe  = regexp.MustCompile(`(?i)\bworked on by\s+[A-Za-z][\w.-]*`)
	completedByRe = regexp.MustCompile(`(?i)\bcompleted by\s+[A-Za-z][\w.-]*`)
	doneByRe      = regexp.MustCompile(`(?i)\bdone by\s+[A-Za-z][\w.-]*`)
)

// Sanitizer scrubs internal identifiers out of user-facing text and
// normalizes duration phrasing. It is stateless and safe for concurrent use.
type Sanitizer struct{}

// NewSanitizer creates a sanitizer.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

// Sanitize removes identifier key/value pairs, redacts bare UUIDs, fixes
// duration units and collapses whitespace.
func (s *Sanitizer) Sanitize(text string) string {
	out := text
	for _, re := range idPairRes {
		out = re.ReplaceAllString(out, "")
	}
	out = uuidRe.ReplaceAllString(out, redactionMarker)

	out = unitOfTimeRe.ReplaceAllString(out, "hr")
	out = hourSuffixRe.ReplaceAllString(out, "$1 hrs")
	out = durationRe.ReplaceAllStringFunc(out, func(match string) string {
		groups := durationRe.FindStringSubmatch(match)
		if groups[2] != "" {
			return match
		}
		return groups[1] + " hrs"
	})

	out = blankLinesRe.ReplaceAllString(out, "\n\n")
	out = whitespaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// NormalizePerspective rewrites first-person phrasing to second person and
// named subjects to "you". Applied only on the synthesized answer path, never
// on raw archived documents.
func (s *Sanitizer) NormalizePerspective(text string) string {
	out := firstPersonRe.ReplaceAllString(text, "You $1")
	out = workedOnByRe.ReplaceAllString(out, "worked on by you")
	out = completedByRe.ReplaceAllString(out, "completed by you")
	out = doneByRe.ReplaceAllString(out, "done by you")
	return strings.TrimSpace(out)
}
