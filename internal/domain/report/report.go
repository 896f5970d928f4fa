package report

import (
	"sort"
	"strings"
)

// Report is the aggregated end-of-run error report: partner code to PO
// numbers, one mapping per user-visible outcome.
type Report struct {
	UnableToInvoice map[string][]string
	AlreadyInvoiced map[string][]string
}

// IsEmpty reports whether there is nothing to notify about. An empty
// report suppresses the downstream mail entirely.
func (r Report) IsEmpty() bool {
	return countAll(r.UnableToInvoice) == 0 && countAll(r.AlreadyInvoiced) == 0
}

// PlainBody renders the monospaced report body. Partners are listed in
// sorted order so the mail is stable across runs.
func (r Report) PlainBody() string {
	var lines []string

	if countAll(r.UnableToInvoice) > 0 {
		lines = append(lines, "There was an error when trying to invoice these orders:")
		lines = appendSection(lines, r.UnableToInvoice)
		lines = append(lines, "")
	}
	if countAll(r.AlreadyInvoiced) > 0 {
		lines = append(lines, "These orders were previously invoiced:")
		lines = appendSection(lines, r.AlreadyInvoiced)
		lines = append(lines, "")
	}
	if len(lines) == 0 {
		lines = []string{"No errors to report."}
	}

	return strings.Join(lines, "\n")
}

func appendSection(lines []string, byPartner map[string][]string) []string {
	partners := make([]string, 0, len(byPartner))
	for partner := range byPartner {
		partners = append(partners, partner)
	}
	sort.Strings(partners)

	for _, partner := range partners {
		lines = append(lines, "  "+partner+":")
		for _, po := range byPartner[partner] {
			lines = append(lines, "    "+po)
		}
	}
	return lines
}

func countAll(byPartner map[string][]string) int {
	n := 0
	for _, pos := range byPartner {
		n += len(pos)
	}
	return n
}
