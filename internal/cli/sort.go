package cli

import (
	"sort"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortNone      SortOrder = ""
	SortByStation SortOrder = "station"
	SortByTime    SortOrder = "time"
	SortByPGA     SortOrder = "pga"
)

func (o SortOrder) valid() bool {
	switch o {
	case SortNone, SortByStation, SortByTime, SortByPGA:
		return true
	}
	return false
}

// sortSummaries sorts station summaries in place. Ties keep argument order.
func sortSummaries(summaries []*StationSummary, order SortOrder) {
	switch order {
	case SortByStation:
		sort.SliceStable(summaries, func(i, j int) bool {
			return summaries[i].Station < summaries[j].Station
		})
	case SortByTime:
		sort.SliceStable(summaries, func(i, j int) bool {
			return summaries[i].StartTime.Before(summaries[j].StartTime)
		})
	case SortByPGA:
		// strongest shaking first
		sort.SliceStable(summaries, func(i, j int) bool {
			return summaries[i].PGA > summaries[j].PGA
		})
	}
}
