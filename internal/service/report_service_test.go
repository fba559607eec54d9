package service_test

import (
	"context"
	"testing"

	"github.com/example/fueldispenser/internal/datamodels/dispense"
	"github.com/example/fueldispenser/internal/repository/memory"
	"github.com/example/fueldispenser/internal/service"
)

func seedLedger(t *testing.T) (*service.ReportService, *service.TransactionService) {
	t.Helper()
	ledger := memory.NewTransactionRepository()
	accounts := memory.NewAccountRepository(ledger)
	engine := service.NewTransactionService(accounts, ledger)
	ctx := context.Background()

	if _, err := engine.TopUp(ctx, "TAG1", 100000, ""); err != nil {
		t.Fatalf("TopUp: %v", err)
	}
	if _, err := engine.TopUp(ctx, "TAG2", 50000, ""); err != nil {
		t.Fatalf("TopUp: %v", err)
	}

	reqs := []service.DispenseRequest{
		{RFID: "TAG1", VolumeLitre: 2, Amount: 20000, FuelType: "PETROL"},
		{RFID: "TAG1", VolumeLitre: 1, Amount: 10000, FuelType: "DIESEL"},
		{RFID: "TAG2", VolumeLitre: 3, Amount: 30000, FuelType: "PETROL"},
		{RFID: "TAG2", VolumeLitre: 9, Amount: 90000, FuelType: "PETROL"}, // over balance, FAILED
	}
	for _, r := range reqs {
		_, _ = engine.Dispense(ctx, r)
	}
	return service.NewReportService(ledger), engine
}

func TestHistoryPagination(t *testing.T) {
	reports, _ := seedLedger(t)
	ctx := context.Background()

	list, pg, err := reports.History(ctx, dispense.Filter{}, 1, 3)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if pg.Total != 4 || pg.Pages != 2 || pg.Page != 1 || pg.Limit != 3 {
		t.Fatalf("pagination = %+v", pg)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	// Newest first: the FAILED TAG2 attempt was last.
	if list[0].RFID != "TAG2" || list[0].Status != dispense.StatusFailed {
		t.Fatalf("first record = %+v", list[0])
	}

	list, pg, err = reports.History(ctx, dispense.Filter{}, 2, 3)
	if err != nil {
		t.Fatalf("History page 2: %v", err)
	}
	if len(list) != 1 || pg.Page != 2 {
		t.Fatalf("page 2: len=%d pg=%+v", len(list), pg)
	}

	// Bad inputs fall back to defaults.
	_, pg, err = reports.History(ctx, dispense.Filter{}, 0, -1)
	if err != nil {
		t.Fatalf("History defaults: %v", err)
	}
	if pg.Page != 1 || pg.Limit != 20 {
		t.Fatalf("defaults = %+v", pg)
	}
}

func TestHistoryFilters(t *testing.T) {
	reports, _ := seedLedger(t)
	ctx := context.Background()

	list, pg, err := reports.History(ctx, dispense.Filter{RFID: "TAG1"}, 1, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if pg.Total != 2 || len(list) != 2 {
		t.Fatalf("TAG1: total=%d len=%d", pg.Total, len(list))
	}

	_, pg, err = reports.History(ctx, dispense.Filter{Status: dispense.StatusFailed}, 1, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if pg.Total != 1 {
		t.Fatalf("failed total = %d", pg.Total)
	}
}

func TestStatsAggregation(t *testing.T) {
	reports, _ := seedLedger(t)

	st, err := reports.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalDispenses != 4 || st.Successful != 3 || st.Failed != 1 {
		t.Fatalf("counts = %+v", st)
	}
	if st.TotalVolume != 15 || st.TotalAmount != 150000 {
		t.Fatalf("totals = volume %v amount %d", st.TotalVolume, st.TotalAmount)
	}
	if st.AvgVolume != 3.75 || st.AvgAmount != 37500 {
		t.Fatalf("averages = %v / %v", st.AvgVolume, st.AvgAmount)
	}

	if len(st.ByFuelType) != 2 {
		t.Fatalf("fuel types = %+v", st.ByFuelType)
	}
	// PETROL has more records, so it sorts first.
	if st.ByFuelType[0].FuelType != "PETROL" || st.ByFuelType[0].Count != 3 {
		t.Fatalf("first fuel = %+v", st.ByFuelType[0])
	}
	if st.ByFuelType[1].FuelType != "DIESEL" || st.ByFuelType[1].Count != 1 {
		t.Fatalf("second fuel = %+v", st.ByFuelType[1])
	}
}

func TestStatsScopedToTag(t *testing.T) {
	reports, _ := seedLedger(t)

	st, err := reports.Stats(context.Background(), "TAG2")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalDispenses != 2 || st.Successful != 1 || st.Failed != 1 {
		t.Fatalf("TAG2 counts = %+v", st)
	}
}

func TestStatsEmptyLedger(t *testing.T) {
	reports := service.NewReportService(memory.NewTransactionRepository())

	st, err := reports.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalDispenses != 0 || st.AvgVolume != 0 || st.AvgAmount != 0 {
		t.Fatalf("empty stats = %+v", st)
	}
	if st.ByFuelType == nil || len(st.ByFuelType) != 0 {
		t.Fatalf("ByFuelType = %#v, want empty non-nil slice", st.ByFuelType)
	}
}
