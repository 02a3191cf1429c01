package codolio

import (
	"regexp"

	"golang.org/x/net/html"
)

var topicRowPattern = regexp.MustCompile(`^([A-Za-z][\w +#&./()',-]*?)\s*:?\s*(\d+(?:,\d+)*)$`)

var topicHeadings = []string{"DSA Topic Analysis", "Topic Analysis"}

// dsaTopics reads the topic breakdown card. A row is the deepest element whose
// text reads "<topic> <count>"; the first row for a topic wins.
func dsaTopics(root *html.Node) map[string]string {
	topics := map[string]string{}

	var heading *html.Node
	for _, label := range topicHeadings {
		if heading = findLabel(root, label); heading != nil {
			break
		}
	}
	if heading == nil {
		return topics
	}

	var collect func(n *html.Node) bool
	collect = func(n *html.Node) bool {
		inner := false
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if isElement(c) && visible(c) && collect(c) {
				inner = true
			}
		}
		if inner {
			return true
		}
		if encloses(n, heading) {
			return false
		}
		m := topicRowPattern.FindStringSubmatch(flatText(n))
		if m == nil {
			return false
		}
		if _, dup := topics[m[1]]; !dup {
			topics[m[1]] = m[2]
		}
		return true
	}
	collect(cardOf(heading))
	return topics
}

func encloses(n, target *html.Node) bool {
	for p := target; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}
