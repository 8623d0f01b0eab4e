package engine

import (
	"sort"

	"github.com/johanlb/scapin-sub003/internal/model"
)

// queryEntities builds the context-query entity list from the previous
// pass's output plus the event's own participants: canonicalized, deduped,
// sorted for stable query keys.
func queryEntities(ev model.PerceivedEvent, prev *model.RawPassOutput) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(raw string) {
		e := canonical(raw)
		if e == "" || seen[e] {
			return
		}
		seen[e] = true
		out = append(out, e)
	}

	if prev != nil {
		for _, e := range prev.Entities {
			add(e)
		}
	}
	add(ev.Sender)
	for _, p := range ev.Participants {
		add(p)
	}

	sort.Strings(out)
	return out
}
