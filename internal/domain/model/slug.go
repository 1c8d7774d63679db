package model

import "strings"

// Slugify lower-cases s, collapses every run of characters outside a-z and
// 0-9 into a single dash and trims dashes from both ends.
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// EventSlug derives the slug for an event, falling back to the first eight
// characters of its id when the title has nothing usable.
func EventSlug(title, id string) string {
	if s := Slugify(title); s != "" {
		return s
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
