// Package retention decides which vault snapshots survive an upload.
//
// Each Rule groups the history by some key (calendar day, ISO week, month,
// client version, login credential, or revision), keeps the newest snapshot
// of each group and then the N most recent groups. A Policy keeps the union
// of its rules' outputs plus the newest snapshot overall; everything else is
// returned as the delete set.
package retention

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Snapshot is the metadata a rule needs about one stored vault revision.
type Snapshot struct {
	ID             string
	RevisionNumber int64
	UpdatedAt      time.Time
	Version        string
	Salt           string
	Verifier       string
}

// Rule selects snapshots to keep. Apply must not modify history.
type Rule interface {
	Apply(history []Snapshot, now time.Time) []Snapshot
}

// Policy is a set of rules whose results are unioned.
type Policy struct {
	Rules []Rule
}

// Prune returns the snapshots from history that no rule keeps. The newest
// snapshot by revision number is always kept, so an empty policy keeps only
// the newest one. The result is ordered by descending revision.
func Prune(history []Snapshot, policy Policy, now time.Time) []Snapshot {
	if len(history) == 0 {
		return nil
	}

	keep := make(map[int64]struct{}, len(history))

	newest := history[0]
	for _, s := range history[1:] {
		if s.RevisionNumber > newest.RevisionNumber {
			newest = s
		}
	}
	keep[newest.RevisionNumber] = struct{}{}

	for _, r := range policy.Rules {
		for _, s := range r.Apply(history, now) {
			keep[s.RevisionNumber] = struct{}{}
		}
	}

	var deleted []Snapshot
	for _, s := range history {
		if _, ok := keep[s.RevisionNumber]; !ok {
			deleted = append(deleted, s)
		}
	}
	sortNewestFirst(deleted)
	return deleted
}

// Daily keeps the latest snapshot of each of the N most recent days.
type Daily struct{ N int }

func (r Daily) Apply(history []Snapshot, _ time.Time) []Snapshot {
	return keepGroups(history, r.N, func(s Snapshot) string {
		return s.UpdatedAt.UTC().Format("2006-01-02")
	})
}

// Weekly keeps the latest snapshot of each of the N most recent ISO weeks.
type Weekly struct{ N int }

func (r Weekly) Apply(history []Snapshot, _ time.Time) []Snapshot {
	return keepGroups(history, r.N, func(s Snapshot) string {
		y, w := s.UpdatedAt.UTC().ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	})
}

// Monthly keeps the latest snapshot of each of the N most recent months.
type Monthly struct{ N int }

func (r Monthly) Apply(history []Snapshot, _ time.Time) []Snapshot {
	return keepGroups(history, r.N, func(s Snapshot) string {
		return s.UpdatedAt.UTC().Format("2006-01")
	})
}

// RevisionCount keeps the N highest revisions.
type RevisionCount struct{ N int }

// Timestamps are ignored: they are taken at transaction start and need not
// follow revision order.
func (r RevisionCount) Apply(history []Snapshot, _ time.Time) []Snapshot {
	if r.N <= 0 || len(history) == 0 {
		return nil
	}
	sorted := make([]Snapshot, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RevisionNumber > sorted[j].RevisionNumber
	})
	if len(sorted) > r.N {
		sorted = sorted[:r.N]
	}
	return sorted
}

// ClientVersion keeps the latest snapshot written by each of the N most
// recent client vault versions.
type ClientVersion struct{ N int }

func (r ClientVersion) Apply(history []Snapshot, _ time.Time) []Snapshot {
	return keepGroups(history, r.N, func(s Snapshot) string {
		return s.Version
	})
}

// LoginCredential keeps the latest snapshot for each of the N most recent
// (salt, verifier) pairs, so a vault encrypted under a previous password
// stays recoverable.
type LoginCredential struct{ N int }

func (r LoginCredential) Apply(history []Snapshot, _ time.Time) []Snapshot {
	return keepGroups(history, r.N, func(s Snapshot) string {
		return s.Salt + "\x00" + s.Verifier
	})
}

// keepGroups walks history newest first and keeps the first snapshot seen for
// each new group key until n groups are collected.
func keepGroups(history []Snapshot, n int, key func(Snapshot) string) []Snapshot {
	if n <= 0 || len(history) == 0 {
		return nil
	}

	sorted := make([]Snapshot, len(history))
	copy(sorted, history)
	sortNewestFirst(sorted)

	seen := make(map[string]struct{}, n)
	out := make([]Snapshot, 0, n)
	for _, s := range sorted {
		k := key(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}

// sortNewestFirst orders by UpdatedAt descending, then revision descending.
func sortNewestFirst(s []Snapshot) {
	sort.SliceStable(s, func(i, j int) bool {
		if !s[i].UpdatedAt.Equal(s[j].UpdatedAt) {
			return s[i].UpdatedAt.After(s[j].UpdatedAt)
		}
		return s[i].RevisionNumber > s[j].RevisionNumber
	})
}

// ParsePolicy builds a policy from rule names mapped to counts, e.g.
// {"daily": 2, "weekly": 1}. Names are case-insensitive; zero counts are
// skipped.
func ParsePolicy(spec map[string]int) (Policy, error) {
	names := make([]string, 0, len(spec))
	for name := range spec {
		names = append(names, name)
	}
	sort.Strings(names)

	var p Policy
	for _, name := range names {
		n := spec[name]
		if n < 0 {
			return Policy{}, fmt.Errorf("retention: negative count %d for rule %q", n, name)
		}
		if n == 0 {
			continue
		}
		switch strings.ToLower(strings.ReplaceAll(name, "_", "")) {
		case "daily":
			p.Rules = append(p.Rules, Daily{N: n})
		case "weekly":
			p.Rules = append(p.Rules, Weekly{N: n})
		case "monthly":
			p.Rules = append(p.Rules, Monthly{N: n})
		case "revision", "revisioncount":
			p.Rules = append(p.Rules, RevisionCount{N: n})
		case "version", "clientversion":
			p.Rules = append(p.Rules, ClientVersion{N: n})
		case "credential", "logincredential":
			p.Rules = append(p.Rules, LoginCredential{N: n})
		default:
			return Policy{}, fmt.Errorf("retention: unknown rule %q", name)
		}
	}
	return p, nil
}

// DefaultPolicy is applied when no policy is configured.
func DefaultPolicy() Policy {
	return Policy{Rules: []Rule{
		RevisionCount{N: 3},
		Daily{N: 2},
		Weekly{N: 1},
		Monthly{N: 1},
		ClientVersion{N: 2},
		LoginCredential{N: 2},
	}}
}
