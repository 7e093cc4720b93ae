package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
)

var analyzeColumns = []string{"acq_date", "brightness", "confidence", "frp", "daynight", "type", "country"}

// analyze loads the selected years and aggregates them. Progress is 25% once
// the filters are set up, 25-75% across the year loads, 90% before
// aggregation and 100% on completion.
func (c *Catalog) analyze(f model.AnalyzeFilters) jobBody {
	return func(ctx context.Context, tr *Tracker) (*model.JobResult, error) {
		if tr.Cancelled(ctx) {
			return nil, domain.ErrCancelled
		}
		filter := model.Filter{}
		if len(f.Countries) > 0 {
			filter["country"] = f.Countries
		}
		if f.DayNight != "" {
			filter["daynight"] = []string{f.DayNight}
		}
		if len(f.FireTypes) > 0 {
			filter["type"] = f.FireTypes
		}
		tr.Report(ctx, 25, model.PhaseLoading, "filters ready")

		n := f.EndYear - f.StartYear + 1
		var rows []model.FireRecord
		for i := 0; i < n; i++ {
			year := f.StartYear + i
			if err := tr.Checkpoint(ctx); err != nil {
				return nil, err
			}
			part, err := c.deps.Columnar.ReadPartition(ctx, c.partition(strconv.Itoa(year)), analyzeColumns, filter)
			if err != nil {
				return nil, fmt.Errorf("load %d: %w", year, err)
			}
			for _, r := range part {
				if int(r.Confidence) >= f.MinConfidence {
					rows = append(rows, r)
				}
			}
			tr.Report(ctx, 25+50*(i+1)/n, model.PhaseLoading, fmt.Sprintf("loaded %d", year))
		}

		if tr.Cancelled(ctx) {
			return nil, domain.ErrCancelled
		}
		tr.Report(ctx, 90, model.PhaseAggregating, fmt.Sprintf("%d fires", len(rows)))

		data, stats := aggregate(rows)
		data.SelectionInfo = model.SelectionInfo{
			StartYear:     f.StartYear,
			EndYear:       f.EndYear,
			Countries:     f.Countries,
			DayNight:      f.DayNight,
			FireTypes:     f.FireTypes,
			MinConfidence: f.MinConfidence,
			YearsLoaded:   n,
		}
		return &model.JobResult{Data: data, Stats: stats, Phase: model.PhaseDone}, nil
	}
}

const topCountries = 10

func aggregate(rows []model.FireRecord) (model.AnalysisData, map[string]any) {
	monthly := map[string]int{}
	dn := map[string]*model.DayNightCount{}
	countries := map[string]int{}
	var brightness, confidence, frp float64

	for _, r := range rows {
		month := monthOf(r.AcqDate)
		monthly[month]++
		d, ok := dn[month]
		if !ok {
			d = &model.DayNightCount{Month: month}
			dn[month] = d
		}
		switch r.DayNight {
		case "D":
			d.Day++
		case "N":
			d.Night++
		}
		if r.Country != "" {
			countries[r.Country]++
		}
		brightness += r.Brightness
		confidence += float64(r.Confidence)
		frp += r.FRP
	}

	var data model.AnalysisData
	months := make([]string, 0, len(monthly))
	for m := range monthly {
		months = append(months, m)
	}
	sort.Strings(months)
	for _, m := range months {
		data.Monthly = append(data.Monthly, model.MonthlyCount{Month: m, Count: monthly[m]})
		data.DayNightMonthly = append(data.DayNightMonthly, *dn[m])
	}

	for name, cnt := range countries {
		data.TopCountries = append(data.TopCountries, model.CountryCount{Country: name, Count: cnt})
	}
	sort.Slice(data.TopCountries, func(i, j int) bool {
		a, b := data.TopCountries[i], data.TopCountries[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Country < b.Country
	})
	if len(data.TopCountries) > topCountries {
		data.TopCountries = data.TopCountries[:topCountries]
	}

	total := len(rows)
	stats := map[string]any{
		"total_fires":    total,
		"avg_brightness": avg(brightness, total),
		"avg_confidence": avg(confidence, total),
		"avg_frp":        avg(frp, total),
	}
	return data, stats
}

func avg(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return math.Round(sum/float64(n)*100) / 100
}

// monthOf maps "2003-07-14" to "2003-07".
func monthOf(date string) string {
	if len(date) >= 7 {
		return date[:7]
	}
	return date
}
