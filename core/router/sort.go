package router

import "strings"

// SortMiddleware orders middleware so that any two entries listed in
// priority keep priority order, while entries absent from priority keep
// their relative order. The result is a permutation of middleware; entries
// are matched against priority by name, ignoring ":args".
//
// Priority is expected to be free of duplicates. The algorithm repeatedly
// moves an entry that ranks before the last seen prioritized entry in front
// of it, then restarts the scan.
func SortMiddleware(priority, middleware []string) []string {
	rank := make(map[string]int, len(priority))
	for i, id := range priority {
		if _, ok := rank[id]; !ok {
			rank[id] = i
		}
	}

	out := append([]string(nil), middleware...)
	if len(rank) == 0 {
		return out
	}

	for {
		moved := false
		lastIndex, lastRank := -1, -1

		for i, id := range out {
			name, _, _ := strings.Cut(id, ":")
			r, ok := rank[name]
			if !ok {
				continue
			}
			if lastIndex >= 0 && r < lastRank {
				move(out, i, lastIndex)
				moved = true
				break
			}
			lastIndex, lastRank = i, r
		}

		if !moved {
			return out
		}
	}
}

// move shifts s[from] to position to, where to < from.
func move(s []string, from, to int) {
	v := s[from]
	copy(s[to+1:from+1], s[to:from])
	s[to] = v
}
