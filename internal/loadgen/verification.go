package loadgen

import (
	"cmp"
	"fmt"
	"slices"
)

// ExpectedBests folds accepted submissions into each player's best
// efficiency per mode.
func ExpectedBests(subs []Submission) map[string]map[string]int64 {
	out := make(map[string]map[string]int64)
	for _, s := range subs {
		m := out[s.Mode]
		if m == nil {
			m = make(map[string]int64)
			out[s.Mode] = m
		}
		if best, ok := m[s.Name]; !ok || s.Efficiency > best {
			m[s.Name] = s.Efficiency
		}
	}
	return out
}

// VerifyBoard checks one board's structural invariants: it holds at most
// boardSize rows, ranks run 1..n, efficiencies never increase and no name
// repeats. With expected non-nil it also checks that every row carries the
// player's best and that the board holds exactly the top efficiencies.
func VerifyBoard(mode string, rows []Row, boardSize int, expected map[string]int64) []string {
	var v []string
	if len(rows) > boardSize {
		v = append(v, fmt.Sprintf("%s: board has %d rows, limit %d", mode, len(rows), boardSize))
	}
	seen := make(map[string]bool, len(rows))
	for i, r := range rows {
		if r.Rank != i+1 {
			v = append(v, fmt.Sprintf("%s: row %d has rank %d", mode, i+1, r.Rank))
		}
		if i > 0 && r.Efficiency > rows[i-1].Efficiency {
			v = append(v, fmt.Sprintf("%s: row %d (%d) outranks row %d (%d)", mode, i+1, r.Efficiency, i, rows[i-1].Efficiency))
		}
		if seen[r.Name] {
			v = append(v, fmt.Sprintf("%s: %s appears more than once", mode, r.Name))
		}
		seen[r.Name] = true

		if expected == nil {
			continue
		}
		best, ok := expected[r.Name]
		switch {
		case !ok:
			v = append(v, fmt.Sprintf("%s: unexpected player %s", mode, r.Name))
		case best != r.Efficiency:
			v = append(v, fmt.Sprintf("%s: %s shows %d, best was %d", mode, r.Name, r.Efficiency, best))
		}
	}
	if expected == nil {
		return v
	}

	want := make([]int64, 0, len(expected))
	for _, eff := range expected {
		want = append(want, eff)
	}
	slices.SortFunc(want, func(a, b int64) int { return cmp.Compare(b, a) })
	want = want[:min(len(want), boardSize)]

	got := make([]int64, len(rows))
	for i, r := range rows {
		got[i] = r.Efficiency
	}
	if !slices.Equal(got, want) {
		v = append(v, fmt.Sprintf("%s: board efficiencies %v, want top %d %v", mode, got, len(want), want))
	}
	return v
}
