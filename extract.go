package codolio

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	numberPattern = regexp.MustCompile(`\d+(?:,\d+)*`)
	ratingPattern = regexp.MustCompile(`\b\d{3,5}\b`)

	// React may split "87 submissions" into two text nodes joined by an
	// empty comment.
	submissionsPattern = regexp.MustCompile(`(?i)>\s*(\d+(?:,\d+)*)\s*(?:<!--\s*-->\s*)*submissions\b`)
)

// Extract parses the rendered markup of a problem-solving page and pulls out
// every statistic it can find. Lookups that fail leave their sentinel in
// place; they never abort the rest of the extraction.
func Extract(markup string) (*Profile, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse profile markup: %w", err)
	}
	p := profilePage{root: bodyOf(doc), markup: markup}
	return p.profile(), nil
}

type profilePage struct {
	root   *html.Node
	markup string
}

func (p profilePage) profile() *Profile {
	stats := foldFields(basicStatLabels, p.numberAfterLabel)
	stats["total_submissions"] = p.submissions().or(sentinel)

	rankings := make(map[string]ContestRating, len(contestLabels))
	for _, site := range contestLabels {
		rankings[site.Key] = ContestRating{Rating: p.rating(site.Label).or(sentinel)}
	}

	return &Profile{
		BasicStats:      stats,
		ProblemsSolved:  foldFields(problemLabels, p.numberAfterLabel),
		ContestRankings: rankings,
		Heatmap:         heatmapCells(p.root),
		DSATopics:       dsaTopics(p.root),
	}
}

// numberAfterLabel finds the number that belongs to label: the first digit run
// after the label inside its card, else the first digit run in the card.
func (p profilePage) numberAfterLabel(label string) field {
	n := findLabel(p.root, label)
	if n == nil {
		return notFound
	}
	return numberNear(flatText(cardOf(n)), label)
}

func numberNear(text, label string) field {
	lower := strings.ToLower(text)
	if idx := strings.Index(lower, strings.ToLower(normalizeSpace(label))); idx >= 0 {
		if m := numberPattern.FindString(lower[idx:]); m != "" {
			return found(m)
		}
	}
	if m := numberPattern.FindString(lower); m != "" {
		return found(m)
	}
	return notFound
}

func (p profilePage) submissions() field {
	m := submissionsPattern.FindStringSubmatch(p.markup)
	if m == nil {
		return notFound
	}
	return found(m[1])
}

// rating returns the last standalone 3-5 digit number in the card that
// mentions site. Peak ratings and ranks can share the card, so this is a
// heuristic: the live rating is usually rendered last.
func (p profilePage) rating(site string) field {
	n := findLabel(p.root, site)
	if n == nil {
		return notFound
	}
	all := ratingPattern.FindAllString(flatText(cardOf(n)), -1)
	if len(all) == 0 {
		return notFound
	}
	return found(all[len(all)-1])
}
