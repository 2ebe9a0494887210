package cryptofolio

import (
	"sort"
	"time"
)

// PricePoint is one daily closing price in JPY.
type PricePoint struct {
	Date  Date    `json:"date"`
	Price float64 `json:"price"`
}

// HistoryMeta describes an accumulated series.
type HistoryMeta struct {
	FirstDate   Date  `json:"firstDate"`
	LastDate    Date  `json:"lastDate"`
	TotalDays   int   `json:"totalDays"`
	LastUpdated int64 `json:"lastUpdated"` // epoch ms of the last successful non-empty merge
}

// PriceHistorySeries is the accumulated daily price history of one coin, as
// stored under a single cache entry. Data is ascending by date with at most
// one point per calendar day.
type PriceHistorySeries struct {
	Coin string       `json:"coinName"`
	Data []PricePoint `json:"data"`
	Meta HistoryMeta  `json:"metadata"`
}

// First returns the oldest point of the series, or false when empty.
func (s *PriceHistorySeries) First() (PricePoint, bool) {
	if s == nil || len(s.Data) == 0 {
		return PricePoint{}, false
	}
	return s.Data[0], true
}

// Last returns the newest point of the series, or false when empty.
func (s *PriceHistorySeries) Last() (PricePoint, bool) {
	if s == nil || len(s.Data) == 0 {
		return PricePoint{}, false
	}
	return s.Data[len(s.Data)-1], true
}

// PriceOn returns the price on a given day, or false when the series has no
// point for that day.
func (s *PriceHistorySeries) PriceOn(day Date) (float64, bool) {
	if s == nil {
		return 0, false
	}
	i := sort.Search(len(s.Data), func(i int) bool { return !s.Data[i].Date.Before(day) })
	if i < len(s.Data) && s.Data[i].Date == day {
		return s.Data[i].Price, true
	}
	return 0, false
}

// MergeHistory merges freshly fetched daily points into a previously
// accumulated series and returns the result. existing may be nil.
//
// Points are keyed by calendar day; on a collision the new point wins. The
// output is ascending by date with no duplicate days, and metadata is
// recomputed from it.
//
// Merging an empty newPoints list returns the existing series untouched: in
// particular Meta.LastUpdated is NOT refreshed, so an empty fetch cannot
// suppress the next legitimate refresh attempt.
func MergeHistory(existing *PriceHistorySeries, coin string, newPoints []PricePoint) *PriceHistorySeries {
	coin = NormalizeCoin(coin)

	if len(newPoints) == 0 {
		if existing != nil {
			return existing
		}
		return &PriceHistorySeries{Coin: coin}
	}

	byDay := make(map[Date]float64)
	if existing != nil {
		for _, p := range existing.Data {
			byDay[p.Date] = p.Price
		}
	}
	for _, p := range newPoints {
		byDay[p.Date] = p.Price
	}

	data := make([]PricePoint, 0, len(byDay))
	for day, price := range byDay {
		data = append(data, PricePoint{Date: day, Price: price})
	}
	sort.Slice(data, func(i, j int) bool { return data[i].Date.Before(data[j].Date) })

	return &PriceHistorySeries{
		Coin: coin,
		Data: data,
		Meta: HistoryMeta{
			FirstDate:   data[0].Date,
			LastDate:    data[len(data)-1].Date,
			TotalDays:   len(data),
			LastUpdated: time.Now().UnixMilli(),
		},
	}
}
