package format

import (
	"errors"
	"fmt"
	"sort"

	"github.com/autocitation/autocite/pkg/core"
)

// ErrUnknownSortMode is returned for a sort mode outside core.SortModes.
var ErrUnknownSortMode = errors.New("unknown sort mode")

// missingYear sorts records without a year last.
const missingYear = 9999

type sortKey struct {
	author string
	year   int
	title  string
}

func keyOf(r *core.Record) sortKey {
	y := r.Year
	if y == 0 {
		y = missingYear
	}
	return sortKey{
		author: core.NormKey(r.FirstAuthorDisplay()),
		year:   y,
		title:  core.NormKey(r.Title),
	}
}

// SortRecords returns a sorted copy of records. The sort is stable and the
// input slice is not modified.
func SortRecords(records []*core.Record, mode string) ([]*core.Record, error) {
	out := append([]*core.Record(nil), records...)

	var less func(a, b sortKey) bool
	switch mode {
	case core.SortNone:
		return out, nil
	case core.SortAuthorYear:
		less = func(a, b sortKey) bool {
			if a.author != b.author {
				return a.author < b.author
			}
			if a.year != b.year {
				return a.year < b.year
			}
			return a.title < b.title
		}
	case core.SortYearAuthor:
		less = func(a, b sortKey) bool {
			if a.year != b.year {
				return a.year < b.year
			}
			if a.author != b.author {
				return a.author < b.author
			}
			return a.title < b.title
		}
	case core.SortTitle:
		less = func(a, b sortKey) bool {
			if a.title != b.title {
				return a.title < b.title
			}
			if a.year != b.year {
				return a.year < b.year
			}
			return a.author < b.author
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSortMode, mode)
	}

	keys := make(map[*core.Record]sortKey, len(out))
	for _, r := range out {
		keys[r] = keyOf(r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(keys[out[i]], keys[out[j]])
	})
	return out, nil
}
