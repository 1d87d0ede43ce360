package browser

import (
	"fmt"
	"sort"
	"strings"

	"lyra-cli/internal/model"
)

type SortMode string

const (
	SortUpdatedDesc SortMode = "updated-desc"
	SortTitleAsc    SortMode = "title-asc"
	SortTitleDesc   SortMode = "title-desc"
)

func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(strings.TrimSpace(strings.ToLower(s))); m {
	case "":
		return SortUpdatedDesc, nil
	case SortUpdatedDesc, SortTitleAsc, SortTitleDesc:
		return m, nil
	default:
		return "", fmt.Errorf("invalid sort %q (expected updated-desc, title-asc or title-desc)", s)
	}
}

// Filter keeps the items whose title contains query, case-insensitively.
func Filter(items []model.Item, query string) []model.Item {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if q == "" || strings.Contains(strings.ToLower(it.Title), q) {
			out = append(out, it)
		}
	}
	return out
}

// SortItems returns a sorted copy of items.
func SortItems(items []model.Item, mode SortMode) []model.Item {
	out := append([]model.Item(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch mode {
		case SortTitleAsc:
			return CompareTitles(a.Title, b.Title) < 0
		case SortTitleDesc:
			return CompareTitles(a.Title, b.Title) > 0
		default:
			return a.UpdatedAt.After(b.UpdatedAt)
		}
	})
	return out
}

// CompareTitles orders titles case-insensitively, falling back to a byte
// comparison so the order is total.
func CompareTitles(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
