package main

import (
	"context"
	"fmt"
	"log"

	"github.com/example/fueldispenser/internal/repository/memory"
	"github.com/example/fueldispenser/internal/service"
)

// Walks the whole top-up and dispense flow against the in-memory store, no
// MySQL or Redis needed. Handy for a quick sanity check of the engine.
func main() {
	ledger := memory.NewTransactionRepository()
	accounts := memory.NewAccountRepository(ledger)
	engine := service.NewTransactionService(accounts, ledger)
	reports := service.NewReportService(ledger)
	ctx := context.Background()

	top, err := engine.TopUp(ctx, "04A1B2C3", 50000, "B 1234 ABC")
	if err != nil {
		log.Fatalf("topup failed: %v", err)
	}
	fmt.Printf("topped up 04A1B2C3: %d -> %d\n", top.BalanceBefore, top.BalanceAfter)

	res, err := engine.Dispense(ctx, service.DispenseRequest{
		RFID:        "04A1B2C3",
		VolumeLitre: 2.5,
		Amount:      25000,
	})
	if err != nil {
		log.Fatalf("dispense failed: %v", err)
	}
	fmt.Printf("dispensed %.2f L for %d: balance %d -> %d\n",
		res.Transaction.VolumeLitre, res.Transaction.Amount, res.BalanceBefore, res.BalanceAfter)

	// Over the remaining balance: rejected, but still on the record.
	if _, err := engine.Dispense(ctx, service.DispenseRequest{
		RFID:        "04A1B2C3",
		VolumeLitre: 9,
		Amount:      90000,
	}); err != nil {
		fmt.Printf("oversized dispense rejected: %v\n", err)
	}

	st, err := reports.Stats(ctx, "04A1B2C3")
	if err != nil {
		log.Fatalf("stats failed: %v", err)
	}
	fmt.Printf("ledger: %d attempts, %d success, %d failed, %.2f L total\n",
		st.TotalDispenses, st.Successful, st.Failed, st.TotalVolume)

	fmt.Println()
	fmt.Println("next steps against real infrastructure:")
	fmt.Println("1) seed the database:   go run ./cmd/seed-db")
	fmt.Println("2) start the public api: go run ./cmd/web")
	fmt.Println("3) start the admin api:  go run ./cmd/admin")
	fmt.Println("4) start the worker:     go run ./cmd/dispense-worker")
}
