package codolio

// field is the outcome of a single best-effort lookup on the page.
type field struct {
	value string
	ok    bool
}

func found(v string) field { return field{value: v, ok: true} }

var notFound = field{}

// or returns the located value, or def when the lookup came up empty.
func (f field) or(def string) string {
	if !f.ok || f.value == "" {
		return def
	}
	return f.value
}

// foldFields runs lookup for every label and folds misses into the sentinel.
// The returned map always holds one entry per label.
func foldFields(labels []statLabel, lookup func(label string) field) map[string]string {
	out := make(map[string]string, len(labels))
	for _, l := range labels {
		out[l.Key] = lookup(l.Label).or(sentinel)
	}
	return out
}
