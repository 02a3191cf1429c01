package codolio

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var (
	slashDatePattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	isoDatePattern   = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	integerPattern   = regexp.MustCompile(`\d+`)
)

// Attributes calendar libraries use to carry a cell's hover text.
var tooltipAttrs = []string{"data-tooltip-content", "data-tip", "data-tooltip", "aria-label", "title"}

// heatmapCells collects every calendar cell in document order. A cell is an
// element with a data-date attribute or a tooltip mentioning a date.
func heatmapCells(root *html.Node) []HeatmapCell {
	cells := []HeatmapCell{}
	walk(root, func(n *html.Node) bool {
		if !isElement(n) {
			return true
		}
		cell, ok := heatmapCell(n)
		if !ok {
			return true
		}
		cells = append(cells, cell)
		return false
	})
	return cells
}

func heatmapCell(n *html.Node) (HeatmapCell, bool) {
	var date, tip, rest string
	if d := attr(n, "data-date"); d != "" {
		date, _ = parseDate(d)
	}
	for _, key := range tooltipAttrs {
		v := attr(n, key)
		if v == "" {
			continue
		}
		d, remainder := parseDate(v)
		if d == "" {
			continue
		}
		tip, rest = v, remainder
		if date == "" {
			date = d
		}
		break
	}
	if date == "" {
		return HeatmapCell{}, false
	}

	submissions := 0
	if c, err := strconv.Atoi(strings.TrimSpace(attr(n, "data-count"))); err == nil {
		submissions = c
	} else if tip != "" {
		if m := integerPattern.FindString(rest); m != "" {
			submissions, _ = strconv.Atoi(m)
		}
	}

	return HeatmapCell{
		Date:        date,
		Submissions: submissions,
		ColorClass:  strings.TrimSpace(attr(n, "class")),
		StyleColor:  cellColor(n),
	}, true
}

// parseDate finds the first date in s and returns it as DD/MM/YYYY together
// with s minus the date. Slash dates are read day first.
func parseDate(s string) (string, string) {
	if loc := slashDatePattern.FindStringSubmatchIndex(s); loc != nil {
		day, month, year := s[loc[2]:loc[3]], s[loc[4]:loc[5]], s[loc[6]:loc[7]]
		if d, ok := formatDate(day, month, year); ok {
			return d, s[:loc[0]] + " " + s[loc[1]:]
		}
	}
	if loc := isoDatePattern.FindStringSubmatchIndex(s); loc != nil {
		year, month, day := s[loc[2]:loc[3]], s[loc[4]:loc[5]], s[loc[6]:loc[7]]
		if d, ok := formatDate(day, month, year); ok {
			return d, s[:loc[0]] + " " + s[loc[1]:]
		}
	}
	return "", s
}

func formatDate(day, month, year string) (string, bool) {
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return "", false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return "", false
	}
	return fmt.Sprintf("%02d/%02d/%s", d, m, year), true
}

// cellColor reads the fill or background color from the inline style, falling
// back to the SVG fill attribute.
func cellColor(n *html.Node) string {
	style := attr(n, "style")
	for _, prop := range []string{"fill", "background-color", "background"} {
		if v := styleProperty(style, prop); v != "" {
			return v
		}
	}
	return strings.TrimSpace(attr(n, "fill"))
}

func styleProperty(style, name string) string {
	for _, decl := range strings.Split(style, ";") {
		key, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), name) {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
