package grid

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrUnknownColumn is returned when sorting by a column rows do not have
var ErrUnknownColumn = errors.New("unknown column")

var (
	numberRun = regexp.MustCompile(`\d+\.?\d*`)

	// collate.Collator keeps scratch buffers and is not safe for concurrent use
	collatorMu sync.Mutex
	collator   = collate.New(language.Und)
)

// NaturalCompare compares strings by splitting them into text and number runs
// and comparing number runs by value, so "bucket 9" sorts before "bucket 10".
func NaturalCompare(a, b string) int {
	aParts, bParts := splitNumbers(a), splitNumbers(b)
	for i := 0; ; i++ {
		if i >= len(aParts) || i >= len(bParts) {
			return cmpInt(len(aParts), len(bParts))
		}
		ap, bp := aParts[i], bParts[i]
		an, aok := leadingInt(ap)
		bn, bok := leadingInt(bp)
		if aok && bok && an != bn {
			return cmpInt(an, bn)
		}
		if c := localeCompare(ap, bp); c != 0 {
			return c
		}
	}
}

// splitNumbers splits s around number runs, keeping the runs: "a1b" gives
// ["a", "1", "b"] and "1" gives ["", "1", ""].
func splitNumbers(s string) []string {
	var parts []string
	last := 0
	for _, loc := range numberRun.FindAllStringIndex(s, -1) {
		parts = append(parts, s[last:loc[0]], s[loc[0]:loc[1]])
		last = loc[1]
	}
	return append(parts, s[last:])
}

func leadingInt(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}

func localeCompare(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Fielder exposes row cells by column name
type Fielder interface {
	Field(column string) (any, bool)
}

// CompareCells orders two cells: numbers and ratios with NumCompare, anything
// else with NaturalCompare on its text.
func CompareCells(a, b any) int {
	af, aNum := asFloat(a)
	bf, bNum := asFloat(b)
	if aNum && bNum {
		return NumCompare(af, bf)
	}
	return NaturalCompare(fmt.Sprint(a), fmt.Sprint(b))
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	case Ratio:
		return float64(n), true
	}
	return 0, false
}

// SortRows stably sorts rows by a column
func SortRows[R Fielder](rows []R, column string, desc bool) error {
	if len(rows) == 0 {
		return nil
	}
	if _, ok := rows[0].Field(column); !ok {
		return fmt.Errorf("sort by %q: %w", column, ErrUnknownColumn)
	}
	slices.SortStableFunc(rows, func(a, b R) int {
		av, _ := a.Field(column)
		bv, _ := b.Field(column)
		c := CompareCells(av, bv)
		if desc {
			return -c
		}
		return c
	})
	return nil
}
