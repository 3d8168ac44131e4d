package pdf

import (
	"regexp"
	"strings"
	"unicode"
)

// pageBreakSentinel separates page texts before normalisation so page
// offsets survive the whitespace cleanup.
const pageBreakSentinel = "\f"

var (
	runsOfSpaces   = regexp.MustCompile(` {3,}`)
	runsOfNewlines = regexp.MustCompile(`\n{3,}`)
)

// NormaliseForChunking cleans up extracted PDF text while keeping
// table-friendly spacing. Runs of three or more spaces collapse to two so
// column alignment stays visible to the chunker.
func NormaliseForChunking(text string) string {
	normalised := strings.ReplaceAll(text, "\r", "\n")
	normalised = strings.ReplaceAll(normalised, "\t", " ")
	normalised = runsOfSpaces.ReplaceAllString(normalised, "  ")
	normalised = runsOfNewlines.ReplaceAllString(normalised, "\n\n")
	return strings.TrimSpace(normalised)
}

// normaliseWithPageBreaks joins page texts, normalises the combined text
// and computes the character offset where each page starts. Offsets are
// adjusted for any leading whitespace removed by the final trim.
func normaliseWithPageBreaks(pages []string) (string, []int) {
	if len(pages) == 0 {
		return "", nil
	}

	combined := strings.Join(pages, pageBreakSentinel)
	normalised := NormaliseForChunking(combined)

	segments := strings.Split(normalised, pageBreakSentinel)
	var parts []string
	var pageBreaks []int
	offset := 0
	for i, segment := range segments {
		if i > 0 {
			parts = append(parts, "\n\n")
			offset += 2
		}
		pageBreaks = append(pageBreaks, offset)
		parts = append(parts, segment)
		offset += len(segment)
	}

	raw := strings.Join(parts, "")
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}

	leadingTrim := len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
	if leadingTrim > 0 {
		for i := range pageBreaks {
			pageBreaks[i] = max(0, pageBreaks[i]-leadingTrim)
		}
	}

	return trimmed, pageBreaks
}
