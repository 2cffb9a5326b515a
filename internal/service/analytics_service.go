package service

import (
	"context"
	"errors"
	"math"

	"github.com/montanaflynn/stats"

	"user-analytics/internal/repository"
)

// AnalyticsService calcula agregados descriptivos sobre el dataset sintético.
type AnalyticsService struct {
	users repository.UserRepository
}

func NewAnalyticsService(users repository.UserRepository) *AnalyticsService {
	return &AnalyticsService{users: users}
}

var ErrNoData = errors.New("no data")

type CityStats struct {
	Count     int     `json:"count"`
	AvgSalary float64 `json:"avg_salary"`
	AvgAge    float64 `json:"avg_age"`
}

type AgeRangeStats struct {
	Count     int     `json:"count"`
	AvgSalary float64 `json:"avg_salary"`
}

type SalaryHistogram struct {
	Counts     []int            `json:"counts"`
	BinEdges   []float64        `json:"bin_edges"`
	Statistics SalaryStatistics `json:"statistics"`
}

type SalaryStatistics struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ByCity agrupa por ciudad con conteo y promedios de salario y edad.
func (s *AnalyticsService) ByCity(ctx context.Context) (map[string]CityStats, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	type acc struct {
		count  int
		salary float64
		age    int
	}
	groups := make(map[string]*acc)
	for _, u := range users {
		g, ok := groups[u.City]
		if !ok {
			g = &acc{}
			groups[u.City] = g
		}
		g.count++
		g.salary += u.Salary
		g.age += u.Age
	}

	result := make(map[string]CityStats, len(groups))
	for city, g := range groups {
		result[city] = CityStats{
			Count:     g.count,
			AvgSalary: round2(g.salary / float64(g.count)),
			AvgAge:    round2(float64(g.age) / float64(g.count)),
		}
	}
	return result, nil
}

// ByAgeRange agrupa por rangos etarios fijos con conteo y salario promedio.
func (s *AnalyticsService) ByAgeRange(ctx context.Context) (map[string]AgeRangeStats, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	ranges := []struct {
		label    string
		min, max int
	}{
		{"18-30", 18, 30},
		{"31-45", 31, 45},
		{"46-60", 46, 60},
		{"60+", 61, 100},
	}

	result := make(map[string]AgeRangeStats, len(ranges))
	for _, r := range ranges {
		var count int
		var total float64
		for _, u := range users {
			if u.Age >= r.min && u.Age <= r.max {
				count++
				total += u.Salary
			}
		}
		entry := AgeRangeStats{Count: count}
		if count > 0 {
			entry.AvgSalary = round2(total / float64(count))
		}
		result[r.label] = entry
	}
	return result, nil
}

// SalaryHistogram arma 10 bins de ancho uniforme más estadísticas de resumen.
func (s *AnalyticsService) SalaryHistogram(ctx context.Context) (SalaryHistogram, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return SalaryHistogram{}, err
	}
	if len(users) == 0 {
		return SalaryHistogram{}, ErrNoData
	}

	salaries := make([]float64, len(users))
	for i, u := range users {
		salaries[i] = u.Salary
	}

	mean, _ := stats.Mean(salaries)
	median, _ := stats.Median(salaries)
	std, _ := stats.StandardDeviationSample(salaries)
	min, _ := stats.Min(salaries)
	max, _ := stats.Max(salaries)

	const bins = 10
	counts := make([]int, bins)
	edges := make([]float64, bins+1)
	width := (max - min) / bins
	for i := 0; i <= bins; i++ {
		edges[i] = min + width*float64(i)
	}
	for _, v := range salaries {
		idx := bins - 1
		if width > 0 {
			idx = int((v - min) / width)
			if idx >= bins {
				// El máximo cae en el último bin, como np.histogram.
				idx = bins - 1
			}
		}
		counts[idx]++
	}

	return SalaryHistogram{
		Counts:   counts,
		BinEdges: edges,
		Statistics: SalaryStatistics{
			Mean:   round2(mean),
			Median: round2(median),
			Std:    round2(std),
			Min:    round2(min),
			Max:    round2(max),
		},
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
