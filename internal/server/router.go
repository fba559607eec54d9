package server

import (
	"encoding/json"
	"errors"

	"github.com/kataras/iris/v12"
	radix "github.com/mediocregopher/radix/v3"
	"go.uber.org/zap"

	"github.com/example/fueldispenser/internal/config"
	"github.com/example/fueldispenser/internal/datamodels/dispense"
	"github.com/example/fueldispenser/internal/gateway"
	"github.com/example/fueldispenser/internal/infra/mq"
	"github.com/example/fueldispenser/internal/infra/redis"
	"github.com/example/fueldispenser/internal/middleware"
	"github.com/example/fueldispenser/internal/repository/mysql"
	"github.com/example/fueldispenser/internal/service"
)

const (
	pumpStatusKey        = "pump:status"
	pumpStatusTTLSeconds = 2
)

// APIDeps carries everything the public API needs. Redis and Queue may be nil
// (the status cache and batch ingestion degrade gracefully).
type APIDeps struct {
	Accounts *service.AccountService
	Engine   *service.TransactionService
	Reports  *service.ReportService
	Pump     gateway.Client
	Redis    radix.Client
	Queue    *service.ReportQueue
}

// RegisterRoutes wires infrastructure and the public API onto the app.
func RegisterRoutes(app *iris.Application, cfg *config.Config) {
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	accountRepo := mysql.NewAccountRepository(db)
	ledgerRepo := mysql.NewTransactionRepository(db)

	// Static frontends (landing page plus the user and admin consoles).
	app.HandleDir("/assets", iris.Dir("./web/assets"))
	app.HandleDir("/user", iris.Dir("./web/user"))
	app.HandleDir("/admin", iris.Dir("./web/admin"))
	app.Get("/", func(ctx iris.Context) {
		_ = ctx.ServeFile("./web/index.html")
	})

	RegisterAPI(app, &APIDeps{
		Accounts: service.NewAccountService(accountRepo, &cfg.Admin),
		Engine:   service.NewTransactionService(accountRepo, ledgerRepo),
		Reports:  service.NewReportService(ledgerRepo),
		Pump:     gateway.NewHTTPClient(&cfg.Dispenser),
		Redis:    redisClient,
		Queue:    service.NewReportQueue(mqConn),
	})
}

// RegisterAPI registers the public API routes.
func RegisterAPI(app *iris.Application, d *APIDeps) {
	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok", "message": "Fuel Backend API"})
	})

	api := app.Party("/api")

	api.Post("/users/topup", middleware.PumpRateLimit(), func(ctx iris.Context) {
		var req struct {
			RFID      string `json:"rfid_uid"`
			Amount    int64  `json:"amount"`
			CarNumber string `json:"car_number"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"error": err.Error()})
			return
		}
		res, err := d.Engine.TopUp(ctx.Request().Context(), req.RFID, req.Amount, req.CarNumber)
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{
			"message":        "Top-up successful",
			"balance_before": res.BalanceBefore,
			"balance_after":  res.BalanceAfter,
			"amount_added":   res.AmountAdded,
			"user":           res.Account,
		})
	})

	api.Post("/dispense", middleware.PumpRateLimit(), func(ctx iris.Context) {
		var req service.DispenseRequest
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"error": err.Error()})
			return
		}
		res, err := d.Engine.Dispense(ctx.Request().Context(), req)
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{
			"message":          "Dispense recorded successfully",
			"balance_before":   res.BalanceBefore,
			"balance_after":    res.BalanceAfter,
			"amount_deducted":  res.Transaction.Amount,
			"volume_dispensed": res.Transaction.VolumeLitre,
			"fuel_type":        res.Transaction.FuelType,
			"transaction":      res.Transaction,
			"user":             res.Account,
		})
	})

	// Pumps that buffered completion reports offline submit them here; the
	// worker replays each one as a normal dispense attempt.
	api.Post("/dispense/batch", func(ctx iris.Context) {
		if d.Queue == nil {
			ctx.StopWithJSON(503, iris.Map{"error": "report queue unavailable"})
			return
		}
		var req struct {
			Reports []service.DispenseRequest `json:"reports"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"error": err.Error()})
			return
		}
		if len(req.Reports) == 0 {
			ctx.StopWithJSON(400, iris.Map{"error": "reports must not be empty"})
			return
		}
		ids := make([]string, 0, len(req.Reports))
		for _, r := range req.Reports {
			id, err := d.Queue.Publish(ctx.Request().Context(), r)
			if err != nil {
				zap.L().Error("failed to enqueue dispense report", zap.Error(err))
				ctx.StopWithJSON(502, iris.Map{"error": "failed to enqueue reports", "queued": ids})
				return
			}
			ids = append(ids, id)
		}
		ctx.StatusCode(202)
		ctx.JSON(iris.Map{"queued": len(ids), "ids": ids})
	})

	api.Get("/dispense/history", func(ctx iris.Context) {
		page := ctx.URLParamIntDefault("page", 1)
		limit := ctx.URLParamIntDefault("limit", 20)
		f := dispense.Filter{
			Status:   ctx.URLParam("status"),
			FuelType: ctx.URLParam("fuel_type"),
		}
		list, pg, err := d.Reports.History(ctx.Request().Context(), f, page, limit)
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"dispenses": list, "pagination": pg})
	})

	api.Get("/dispense/history/{uid:string}", func(ctx iris.Context) {
		uid := ctx.Params().Get("uid")
		page := ctx.URLParamIntDefault("page", 1)
		limit := ctx.URLParamIntDefault("limit", 20)
		list, pg, err := d.Reports.History(ctx.Request().Context(), dispense.Filter{RFID: uid}, page, limit)
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"rfid_uid": uid, "dispenses": list, "pagination": pg})
	})

	api.Get("/dispense/stats", func(ctx iris.Context) {
		rfid := ctx.URLParam("rfid_uid")
		st, err := d.Reports.Stats(ctx.Request().Context(), rfid)
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		resp := iris.Map{
			"overall": iris.Map{
				"total_dispenses":         st.TotalDispenses,
				"successful_dispenses":    st.Successful,
				"failed_dispenses":        st.Failed,
				"total_volume":            st.TotalVolume,
				"total_amount":            st.TotalAmount,
				"avg_volume_per_dispense": st.AvgVolume,
				"avg_amount_per_dispense": st.AvgAmount,
			},
			"by_fuel_type": st.ByFuelType,
		}
		if rfid != "" {
			resp["rfid_uid"] = rfid
		}
		ctx.JSON(resp)
	})

	// Device-facing lookup: the configured admin tag answers with the admin
	// marker instead of an account.
	api.Get("/users/by-rfid/{uid:string}", func(ctx iris.Context) {
		uid := ctx.Params().Get("uid")
		if d.Accounts.IsAdminTag(uid) {
			ctx.JSON(iris.Map{
				"isAdmin":  true,
				"rfid_uid": d.Accounts.AdminTag(),
				"name":     "Administrator",
				"balance":  0,
				"message":  "Admin access granted",
			})
			return
		}
		acc, err := d.Accounts.Lookup(ctx.Request().Context(), uid)
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		ctx.JSON(acc)
	})

	// Remote start: confirm the tag can afford the requested amount, then ask
	// the controller to run. The actual debit happens when the completion
	// report arrives through /api/dispense.
	api.Post("/pump/start", middleware.PumpRateLimit(), func(ctx iris.Context) {
		var req struct {
			RFID   string `json:"rfid_uid"`
			Amount int64  `json:"amount"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"error": err.Error()})
			return
		}
		if req.Amount <= 0 {
			ctx.StopWithJSON(400, iris.Map{"error": service.ErrInvalidAmount.Error()})
			return
		}
		acc, err := d.Accounts.Lookup(ctx.Request().Context(), req.RFID)
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		if acc.Balance < req.Amount {
			ctx.StopWithJSON(400, iris.Map{
				"error":    "Insufficient balance",
				"balance":  acc.Balance,
				"required": req.Amount,
				"shortage": req.Amount - acc.Balance,
			})
			return
		}
		if err := d.Pump.Start(ctx.Request().Context(), req.Amount); err != nil {
			zap.L().Warn("pump start failed", zap.Error(err))
			ctx.StopWithJSON(502, iris.Map{"error": "pump unreachable"})
			return
		}
		ctx.JSON(iris.Map{"message": "Pump started", "balance": acc.Balance, "amount": req.Amount})
	})

	api.Get("/pump/status", func(ctx iris.Context) {
		if d.Redis != nil {
			var raw string
			if err := d.Redis.Do(radix.Cmd(&raw, "GET", pumpStatusKey)); err != nil {
				service.GetMonitor().RecordRedisError()
			} else if raw != "" {
				ctx.ContentType("application/json")
				_, _ = ctx.Write([]byte(raw))
				return
			}
		}
		st, err := d.Pump.Status(ctx.Request().Context())
		if err != nil {
			zap.L().Warn("pump status poll failed", zap.Error(err))
			ctx.StopWithJSON(502, iris.Map{"error": "pump unreachable"})
			return
		}
		if d.Redis != nil {
			if body, err := json.Marshal(st); err == nil {
				if err := d.Redis.Do(radix.FlatCmd(nil, "SETEX", pumpStatusKey, pumpStatusTTLSeconds, body)); err != nil {
					service.GetMonitor().RecordRedisError()
				}
			}
		}
		ctx.JSON(st)
	})
}

// writeServiceError maps the service error taxonomy onto HTTP responses.
func writeServiceError(ctx iris.Context, err error) {
	var insufficient *service.InsufficientBalanceError
	switch {
	case errors.Is(err, service.ErrInvalidIdentity),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidVolume):
		ctx.StopWithJSON(400, iris.Map{"error": err.Error()})
	case errors.Is(err, service.ErrAccountNotFound):
		ctx.StopWithJSON(404, iris.Map{"error": "User not found"})
	case errors.As(err, &insufficient):
		if insufficient.Concurrent {
			ctx.StopWithJSON(400, iris.Map{"error": "Insufficient balance (concurrent transaction)"})
			return
		}
		ctx.StopWithJSON(400, iris.Map{
			"error":    "Insufficient balance",
			"balance":  insufficient.Balance,
			"required": insufficient.Required,
			"shortage": insufficient.Shortage(),
		})
	default:
		zap.L().Error("request failed", zap.Error(err))
		ctx.StopWithJSON(500, iris.Map{"error": "internal error"})
	}
}
