package retention

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

func day(month time.Month, d, hour int) time.Time {
	return time.Date(2023, month, d, hour, 0, 0, 0, time.UTC)
}

func fixture() []Snapshot {
	return []Snapshot{
		{RevisionNumber: 9, UpdatedAt: day(time.May, 31, 12), Version: "1.1.0", Salt: "abc", Verifier: "v1"},
		{RevisionNumber: 8, UpdatedAt: day(time.May, 31, 4), Version: "1.1.0", Salt: "abc", Verifier: "v1"},
		{RevisionNumber: 7, UpdatedAt: day(time.May, 30, 0), Version: "1.1.0", Salt: "abc", Verifier: "v1"},
		{RevisionNumber: 6, UpdatedAt: day(time.May, 29, 0), Version: "1.1.0", Salt: "abc", Verifier: "v1"},
		{RevisionNumber: 5, UpdatedAt: day(time.May, 28, 0), Version: "1.0.3", Salt: "abc", Verifier: "v1"},
		{RevisionNumber: 4, UpdatedAt: day(time.May, 18, 0), Version: "1.0.3", Salt: "def", Verifier: "v2"},
		{RevisionNumber: 3, UpdatedAt: day(time.May, 11, 0), Version: "1.0.3", Salt: "def", Verifier: "v2"},
		{RevisionNumber: 2, UpdatedAt: day(time.May, 1, 0), Version: "1.0.2", Salt: "def", Verifier: "v2"},
		{RevisionNumber: 1, UpdatedAt: day(time.April, 1, 0), Version: "1.0.1", Salt: "ghi", Verifier: "v3"},
	}
}

func revisions(s []Snapshot) []int64 {
	out := make([]int64, 0, len(s))
	for _, x := range s {
		out = append(out, x.RevisionNumber)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

func TestRules(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		want []int64
	}{
		{"daily", Daily{N: 3}, []int64{9, 7, 6}},
		{"weekly", Weekly{N: 3}, []int64{9, 5, 4}},
		{"monthly", Monthly{N: 2}, []int64{9, 1}},
		{"revision", RevisionCount{N: 5}, []int64{9, 8, 7, 6, 5}},
		{"client version", ClientVersion{N: 2}, []int64{9, 5}},
		{"login credential", LoginCredential{N: 2}, []int64{9, 4}},
		{"more groups than exist", Monthly{N: 12}, []int64{9, 1}},
		{"zero", Daily{N: 0}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.rule.Apply(fixture(), now)
			assert.Equal(t, tt.want, revisions(got))
		})
	}
}

func TestWeekly_IsoWeekStartsMonday(t *testing.T) {
	// 2023-05-28 is a Sunday, 2023-05-29 a Monday.
	h := []Snapshot{
		{RevisionNumber: 2, UpdatedAt: day(time.May, 29, 1)},
		{RevisionNumber: 1, UpdatedAt: day(time.May, 28, 23)},
	}
	assert.Equal(t, []int64{2, 1}, revisions(Weekly{N: 2}.Apply(h, now)))
}

func TestApplyDoesNotReorderInput(t *testing.T) {
	h := fixture()
	h[0], h[8] = h[8], h[0]
	before := append([]Snapshot(nil), h...)

	Daily{N: 2}.Apply(h, now)
	assert.Equal(t, before, h)
}

func TestPrune_CombinedPolicy(t *testing.T) {
	p := Policy{Rules: []Rule{
		RevisionCount{N: 1},
		Daily{N: 2},
		Weekly{N: 2},
		Monthly{N: 1},
		ClientVersion{N: 3},
	}}

	deleted := Prune(fixture(), p, now)
	assert.Equal(t, []int64{8, 6, 4, 3, 1}, revisions(deleted))
}

func TestPrune_DailyWeeklyMonthly(t *testing.T) {
	p := Policy{Rules: []Rule{Daily{N: 2}, Weekly{N: 2}, Monthly{N: 2}}}
	deleted := Prune(fixture(), p, now)
	assert.Len(t, deleted, 5)
	assert.Equal(t, []int64{8, 6, 4, 3, 2}, revisions(deleted))

	p = Policy{Rules: []Rule{Daily{N: 2}, Weekly{N: 2}, Monthly{N: 1}}}
	deleted = Prune(fixture(), p, now)
	assert.Len(t, deleted, 6)
}

func TestPrune_EmptyPolicyKeepsNewest(t *testing.T) {
	deleted := Prune(fixture(), Policy{}, now)
	assert.Len(t, deleted, 8)
	for _, s := range deleted {
		assert.NotEqual(t, int64(9), s.RevisionNumber)
	}
}

func TestPrune_NewestByRevisionAlwaysKept(t *testing.T) {
	// Newest revision carries an older timestamp than revision 1.
	h := []Snapshot{
		{RevisionNumber: 1, UpdatedAt: day(time.May, 31, 0)},
		{RevisionNumber: 2, UpdatedAt: day(time.May, 1, 0)},
	}
	deleted := Prune(h, Policy{Rules: []Rule{Daily{N: 1}}}, now)
	assert.Empty(t, deleted)
}

func TestRevisionCount_IgnoresTimestamps(t *testing.T) {
	h := []Snapshot{
		{RevisionNumber: 4, UpdatedAt: day(time.May, 31, 9)},
		{RevisionNumber: 3, UpdatedAt: day(time.May, 31, 10)},
		{RevisionNumber: 2, UpdatedAt: day(time.May, 31, 12)},
		{RevisionNumber: 1, UpdatedAt: day(time.May, 31, 11)},
	}
	assert.Equal(t, []int64{4, 3}, revisions(RevisionCount{N: 2}.Apply(h, now)))

	deleted := Prune(h, Policy{Rules: []Rule{RevisionCount{N: 2}}}, now)
	assert.Equal(t, []int64{2, 1}, revisions(deleted))
}

func TestPrune_Empty(t *testing.T) {
	assert.Nil(t, Prune(nil, DefaultPolicy(), now))
}

func TestPrune_SortedNewestFirst(t *testing.T) {
	deleted := Prune(fixture(), Policy{}, now)
	for i := 1; i < len(deleted); i++ {
		assert.Greater(t, deleted[i-1].RevisionNumber, deleted[i].RevisionNumber)
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy(map[string]int{
		"daily":            2,
		"Weekly":           1,
		"monthly":          0,
		"revision_count":   3,
		"client_version":   2,
		"login_credential": 2,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []Rule{
		Daily{N: 2}, Weekly{N: 1}, RevisionCount{N: 3}, ClientVersion{N: 2}, LoginCredential{N: 2},
	}, p.Rules)

	_, err = ParsePolicy(map[string]int{"hourly": 1})
	assert.ErrorContains(t, err, "unknown rule")

	_, err = ParsePolicy(map[string]int{"daily": -1})
	assert.ErrorContains(t, err, "negative")
}

func TestDefaultPolicy(t *testing.T) {
	deleted := Prune(fixture(), DefaultPolicy(), now)
	// revision: 9,8,7; daily: 9,7; weekly: 9; monthly: 9; version: 9,5; credential: 9,4
	assert.Equal(t, []int64{6, 3, 2, 1}, revisions(deleted))
}

func BenchmarkPrune(b *testing.B) {
	history := make([]Snapshot, 0, 1000)
	start := now.Add(-1000 * 6 * time.Hour)
	for i := 0; i < 1000; i++ {
		history = append(history, Snapshot{
			RevisionNumber: int64(i + 1),
			UpdatedAt:      start.Add(time.Duration(i) * 6 * time.Hour),
			Version:        fmt.Sprintf("1.%d.0", i/100),
			Salt:           fmt.Sprintf("salt-%d", i/250),
		})
	}
	p := DefaultPolicy()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Prune(history, p, now)
	}
}
