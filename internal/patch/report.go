package patch

// OwnerCounts attributes one owner's patches on a target, broken down by
// patch kind so the report communicates the nature of the overlap.
type OwnerCounts struct {
	Owner  string
	Counts map[Kind]int
}

// Total returns the owner's patch count across all kinds.
func (o OwnerCounts) Total() int {
	n := 0
	for _, c := range o.Counts {
		n += c
	}
	return n
}

// Conflict reports a target modified by more than one owner. Overlap is
// informational, not an error: operators use the report to spot unintended
// interactions between mods.
type Conflict struct {
	Target string
	Owners []OwnerCounts
}

// Conflicts groups handles by target and returns every target touched by
// more than one owner. Targets appear in first-application order, as do the
// owners within each conflict, so the report is deterministic for a given
// handle sequence.
func Conflicts(handles []Handle) []Conflict {
	type targetEntry struct {
		owners     []string
		ownerIndex map[string]int
		counts     map[string]map[Kind]int
	}

	var targetOrder []string
	targets := make(map[string]*targetEntry)

	for _, h := range handles {
		entry, ok := targets[h.Target]
		if !ok {
			entry = &targetEntry{
				ownerIndex: make(map[string]int),
				counts:     make(map[string]map[Kind]int),
			}
			targets[h.Target] = entry
			targetOrder = append(targetOrder, h.Target)
		}
		if _, seen := entry.ownerIndex[h.Owner]; !seen {
			entry.ownerIndex[h.Owner] = len(entry.owners)
			entry.owners = append(entry.owners, h.Owner)
			entry.counts[h.Owner] = make(map[Kind]int)
		}
		entry.counts[h.Owner][h.Kind]++
	}

	var out []Conflict
	for _, target := range targetOrder {
		entry := targets[target]
		if len(entry.owners) < 2 {
			continue
		}
		c := Conflict{Target: target}
		for _, owner := range entry.owners {
			c.Owners = append(c.Owners, OwnerCounts{
				Owner:  owner,
				Counts: entry.counts[owner],
			})
		}
		out = append(out, c)
	}
	return out
}
