package response

import (
	"regexp"
	"strings"
)

// Parsed is the structured view of a raw model completion.
type Parsed struct {
	// Text is the user-facing reply with all markers stripped.
	Text string
	// Verses are the quoted scripture segments found in the reply.
	Verses []string
	// Citations are the reference keys the model cited, filtered down
	// to the passages it was actually offered.
	Citations []string
	// GuidanceType drives closure detection ("guidance" | "closure").
	GuidanceType string
}

var (
	verseMarkerRe = regexp.MustCompile(`(?s)\[VERSE\](.*?)\[/VERSE\]`)
	typeMarkerRe  = regexp.MustCompile(`\[TYPE\]\s*(\w+)\s*\[/TYPE\]`)
	refRe         = regexp.MustCompile(`\(ref:\s*([^)]+)\)`)

	// Heuristic fallbacks for completions that ignore the markers.
	quotedLineRe   = regexp.MustCompile(`^\s*["“].+["”]\s*$`)
	devanagariRe   = regexp.MustCompile(`[\x{0900}-\x{097F}]`)
	citationLikeRe = regexp.MustCompile(`\([A-Z][A-Za-z .]+ \d+[.:]\d+\)`)
)

// Parse extracts verse segments, citations and the guidance type from
// raw generated text. offered is the set of reference keys that were
// in the prompt; a citation outside that set is a contract violation
// and is dropped, never passed through.
func Parse(raw string, offered []string) Parsed {
	offeredSet := make(map[string]struct{}, len(offered))
	for _, key := range offered {
		offeredSet[strings.TrimSpace(key)] = struct{}{}
	}

	parsed := Parsed{GuidanceType: "guidance"}

	if m := typeMarkerRe.FindStringSubmatch(raw); m != nil {
		parsed.GuidanceType = strings.ToLower(m[1])
	}

	parsed.Verses = extractVerses(raw)

	// Collect citations, keeping only offered keys and dropping
	// duplicates while preserving first-seen order.
	seen := make(map[string]struct{})
	for _, m := range refRe.FindAllStringSubmatch(raw, -1) {
		key := strings.TrimSpace(m[1])
		if _, ok := offeredSet[key]; !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		parsed.Citations = append(parsed.Citations, key)
	}

	parsed.Text = cleanText(raw)
	return parsed
}

func extractVerses(raw string) []string {
	var verses []string

	matches := verseMarkerRe.FindAllStringSubmatch(raw, -1)
	if len(matches) > 0 {
		for _, m := range matches {
			if v := strings.TrimSpace(m[1]); v != "" {
				verses = append(verses, v)
			}
		}
		return verses
	}

	// No markers: fall back to line-pattern detection so older or
	// non-conforming completions still yield verse structure.
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if quotedLineRe.MatchString(trimmed) ||
			devanagariRe.MatchString(trimmed) ||
			citationLikeRe.MatchString(trimmed) {
			verses = append(verses, strings.Trim(trimmed, `"“”`))
		}
	}
	return verses
}

func cleanText(raw string) string {
	out := typeMarkerRe.ReplaceAllString(raw, "")
	out = verseMarkerRe.ReplaceAllStringFunc(out, func(seg string) string {
		inner := verseMarkerRe.FindStringSubmatch(seg)
		return strings.TrimSpace(inner[1])
	})
	out = refRe.ReplaceAllString(out, "")

	// Collapse the whitespace the marker removal leaves behind.
	out = regexp.MustCompile(` +\n`).ReplaceAllString(out, "\n")
	out = regexp.MustCompile(`\n{3,}`).ReplaceAllString(out, "\n\n")
	out = regexp.MustCompile(`  +`).ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
