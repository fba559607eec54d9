package service

import (
	"context"
	"sort"

	"github.com/example/fueldispenser/internal/datamodels/dispense"
)

// ReportService is the read-only view over the dispense ledger. It derives
// everything by scanning the filtered record set; records are immutable, so
// recomputation is always consistent.
type ReportService struct {
	ledger dispense.Repository
}

// NewReportService creates the reporting service.
func NewReportService(ledger dispense.Repository) *ReportService {
	return &ReportService{ledger: ledger}
}

// Page describes one slice of a paginated result.
type Page struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// History returns matching records newest-first. page is 1-based.
func (s *ReportService) History(ctx context.Context, f dispense.Filter, page, limit int) ([]*dispense.Transaction, Page, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	total, err := s.ledger.Count(ctx, f)
	if err != nil {
		return nil, Page{}, err
	}
	list, err := s.ledger.List(ctx, f, (page-1)*limit, limit)
	if err != nil {
		return nil, Page{}, err
	}
	pages := int((total + int64(limit) - 1) / int64(limit))
	return list, Page{Total: total, Page: page, Limit: limit, Pages: pages}, nil
}

// FuelTypeStats is the per-fuel-type slice of the aggregate.
type FuelTypeStats struct {
	FuelType    string  `json:"fuel_type"`
	Count       int64   `json:"count"`
	TotalVolume float64 `json:"total_volume"`
	TotalAmount int64   `json:"total_amount"`
}

// Stats is the full-scan aggregate over a filtered record set.
type Stats struct {
	TotalDispenses int64           `json:"total_dispenses"`
	Successful     int64           `json:"successful_dispenses"`
	Failed         int64           `json:"failed_dispenses"`
	TotalVolume    float64         `json:"total_volume"`
	TotalAmount    int64           `json:"total_amount"`
	AvgVolume      float64         `json:"avg_volume_per_dispense"`
	AvgAmount      float64         `json:"avg_amount_per_dispense"`
	ByFuelType     []FuelTypeStats `json:"by_fuel_type"`
}

// Stats aggregates the ledger, optionally scoped to one tag. Fuel types are
// ordered by count descending.
func (s *ReportService) Stats(ctx context.Context, rfid string) (*Stats, error) {
	recs, err := s.ledger.ListAll(ctx, dispense.Filter{RFID: rfid})
	if err != nil {
		return nil, err
	}

	out := &Stats{ByFuelType: []FuelTypeStats{}}
	byFuel := map[string]*FuelTypeStats{}
	for _, t := range recs {
		out.TotalDispenses++
		if t.Status == dispense.StatusSuccess {
			out.Successful++
		} else {
			out.Failed++
		}
		out.TotalVolume += t.VolumeLitre
		out.TotalAmount += t.Amount

		ft, ok := byFuel[t.FuelType]
		if !ok {
			ft = &FuelTypeStats{FuelType: t.FuelType}
			byFuel[t.FuelType] = ft
		}
		ft.Count++
		ft.TotalVolume += t.VolumeLitre
		ft.TotalAmount += t.Amount
	}
	if out.TotalDispenses > 0 {
		out.AvgVolume = out.TotalVolume / float64(out.TotalDispenses)
		out.AvgAmount = float64(out.TotalAmount) / float64(out.TotalDispenses)
	}
	for _, ft := range byFuel {
		out.ByFuelType = append(out.ByFuelType, *ft)
	}
	sort.Slice(out.ByFuelType, func(i, j int) bool {
		if out.ByFuelType[i].Count != out.ByFuelType[j].Count {
			return out.ByFuelType[i].Count > out.ByFuelType[j].Count
		}
		return out.ByFuelType[i].FuelType < out.ByFuelType[j].FuelType
	})
	return out, nil
}
