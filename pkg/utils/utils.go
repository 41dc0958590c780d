package utils

import (
	"sort"
	"strconv"
)

type KeyCount struct {
	Key   string
	Count uint64
}

// SortByCount sorts keys by count (descending), then by key (ascending)
func SortByCount(counts map[string]uint64) []KeyCount {
	out := make([]KeyCount, 0, len(counts))
	for key, count := range counts {
		out = append(out, KeyCount{Key: key, Count: count})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Key < out[j].Key
		}
		return out[i].Count > out[j].Count
	})

	return out
}

// FormatNumber formats a number with comma separators for readability
func FormatNumber(n uint64) string {
	str := strconv.FormatUint(n, 10)
	if len(str) <= 3 {
		return str
	}

	result := make([]byte, 0, len(str)+len(str)/3)
	for i := 0; i < len(str); i++ {
		if i > 0 && (len(str)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, str[i])
	}
	return string(result)
}
