package main

import (
	"context"
	"log"

	"github.com/example/fueldispenser/internal/config"
	"github.com/example/fueldispenser/internal/datamodels/account"
	"github.com/example/fueldispenser/internal/repository/mysql"
	"github.com/example/fueldispenser/internal/service"
)

func strPtr(s string) *string { return &s }

// Seeds a handful of demo accounts and a short dispense history so the
// consoles have something to show on a fresh database.
func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := mysql.Init(&cfg.MySQL)
	accountRepo := mysql.NewAccountRepository(db)
	ledgerRepo := mysql.NewTransactionRepository(db)

	accounts := service.NewAccountService(accountRepo, &cfg.Admin)
	engine := service.NewTransactionService(accountRepo, ledgerRepo)

	ctx := context.Background()

	seeds := []struct {
		rfid    string
		name    string
		phone   string
		car     string
		balance int64
	}{
		{"04A1B2C3", "Budi Santoso", "081234567801", "B 1234 ABC", 50000},
		{"04D4E5F6", "Siti Rahayu", "081234567802", "B 5678 DEF", 75000},
		{"04AABBCC", "Agus Wijaya", "081234567803", "B 9012 GHI", 30000},
		{"04DDEEFF", "Dewi Lestari", "081234567804", "B 3456 JKL", 100000},
	}

	for _, s := range seeds {
		acc, created, err := accounts.Upsert(ctx, s.rfid, account.Profile{
			Name:      strPtr(s.name),
			Phone:     strPtr(s.phone),
			CarNumber: strPtr(s.car),
		})
		if err != nil {
			log.Fatalf("seed %s: %v", s.rfid, err)
		}
		if created {
			log.Printf("created %s (%s)", acc.RFID, s.name)
		} else {
			log.Printf("exists %s (%s), skipping balance", acc.RFID, s.name)
			continue
		}
		if _, err := engine.TopUp(ctx, s.rfid, s.balance, s.car); err != nil {
			log.Fatalf("top up %s: %v", s.rfid, err)
		}
	}

	history := []service.DispenseRequest{
		{RFID: "04A1B2C3", VolumeLitre: 2.5, Amount: 25000, FuelType: "PETROL", CarNumber: "B 1234 ABC"},
		{RFID: "04D4E5F6", VolumeLitre: 1.0, Amount: 10000, FuelType: "PETROL", CarNumber: "B 5678 DEF"},
		{RFID: "04DDEEFF", VolumeLitre: 3.2, Amount: 32000, FuelType: "DIESEL", CarNumber: "B 3456 JKL"},
	}
	for _, h := range history {
		if _, err := engine.Dispense(ctx, h); err != nil {
			log.Printf("seed dispense %s: %v", h.RFID, err)
		}
	}

	log.Println("seed complete")
}
