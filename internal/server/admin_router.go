package server

import (
	"strings"
	"time"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/example/fueldispenser/internal/auth"
	"github.com/example/fueldispenser/internal/config"
	"github.com/example/fueldispenser/internal/datamodels/account"
	"github.com/example/fueldispenser/internal/infra/redis"
	"github.com/example/fueldispenser/internal/repository/mysql"
	"github.com/example/fueldispenser/internal/service"
)

// AdminDeps carries everything the admin API needs.
type AdminDeps struct {
	Accounts *service.AccountService
	JWT      *config.JWTConfig
	Cache    *auth.TokenCache
}

// RegisterAdminRoutes wires infrastructure and the admin API onto the app.
func RegisterAdminRoutes(app *iris.Application, cfg *config.Config) {
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)

	ring := auth.NewRing(cfg.Auth.Nodes, cfg.Auth.HashReplicas)
	ttl := time.Duration(cfg.Auth.TokenCacheTTLSeconds) * time.Second

	app.HandleDir("/assets", iris.Dir("./web/assets"))
	app.HandleDir("/admin", iris.Dir("./web/admin"))

	RegisterAdminAPI(app, &AdminDeps{
		Accounts: service.NewAccountService(mysql.NewAccountRepository(db), &cfg.Admin),
		JWT:      &cfg.JWT,
		Cache:    auth.NewTokenCache(redisClient, ring, ttl),
	})
}

// RegisterAdminAPI registers the admin API routes.
func RegisterAdminAPI(app *iris.Application, d *AdminDeps) {
	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok", "message": "Fuel Admin API"})
	})

	api := app.Party("/api")

	// A scanned admin tag is the only credential there is.
	api.Post("/login", func(ctx iris.Context) {
		var req struct {
			Tag string `json:"tag"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"error": err.Error()})
			return
		}
		if !d.Accounts.IsAdminTag(req.Tag) {
			ctx.StopWithJSON(401, iris.Map{"error": "not an admin tag"})
			return
		}
		token, err := auth.GenerateToken(d.JWT, d.Accounts.AdminTag(), true)
		if err != nil {
			zap.L().Error("token generation failed", zap.Error(err))
			ctx.StopWithJSON(500, iris.Map{"error": "internal error"})
			return
		}
		ctx.JSON(iris.Map{"token": token, "expires_in": int64((8 * time.Hour).Seconds())})
	})

	admin := api.Party("/")
	admin.Use(d.adminAuth)

	admin.Get("/users", func(ctx iris.Context) {
		page := ctx.URLParamIntDefault("page", 1)
		limit := ctx.URLParamIntDefault("limit", 10)
		list, total, err := d.Accounts.List(ctx.Request().Context(), ctx.URLParam("search"), page, limit)
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		pages := int((total + int64(limit) - 1) / int64(limit))
		ctx.JSON(iris.Map{
			"users": list,
			"pagination": iris.Map{
				"total": total,
				"page":  page,
				"limit": limit,
				"pages": pages,
			},
		})
	})

	admin.Post("/users", func(ctx iris.Context) {
		var req struct {
			RFID      string  `json:"rfid_uid"`
			Name      *string `json:"name"`
			Phone     *string `json:"phone"`
			CarNumber *string `json:"car_number"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"error": err.Error()})
			return
		}
		acc, created, err := d.Accounts.Upsert(ctx.Request().Context(), req.RFID, account.Profile{
			Name:      req.Name,
			Phone:     req.Phone,
			CarNumber: req.CarNumber,
		})
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		if created {
			ctx.StatusCode(201)
		}
		ctx.JSON(iris.Map{"user": acc, "created": created})
	})

	admin.Get("/users/{uid:string}", func(ctx iris.Context) {
		acc, err := d.Accounts.Lookup(ctx.Request().Context(), ctx.Params().Get("uid"))
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"user": acc})
	})

	admin.Patch("/users/{uid:string}/balance", func(ctx iris.Context) {
		var req struct {
			Balance int64 `json:"balance"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"error": err.Error()})
			return
		}
		acc, err := d.Accounts.SetBalance(ctx.Request().Context(), ctx.Params().Get("uid"), req.Balance)
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"message": "Balance updated", "user": acc})
	})

	admin.Delete("/users/{uid:string}", func(ctx iris.Context) {
		acc, err := d.Accounts.Delete(ctx.Request().Context(), ctx.Params().Get("uid"))
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"message": "User deleted", "user": acc})
	})

	admin.Get("/metrics", func(ctx iris.Context) {
		ctx.JSON(service.GetMonitor().GetStats())
	})
}

// adminAuth requires a valid bearer token with the admin capability. Parsed
// claims are cached in Redis keyed by token digest.
func (d *AdminDeps) adminAuth(ctx iris.Context) {
	header := ctx.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		ctx.StopWithJSON(401, iris.Map{"error": "missing bearer token"})
		return
	}

	var claims *auth.Claims
	if d.Cache != nil {
		cached, hit, err := d.Cache.Get(ctx.Request().Context(), token)
		if err != nil {
			service.GetMonitor().RecordRedisError()
		} else if hit {
			claims = cached
		}
	}
	if claims == nil {
		parsed, err := auth.ParseToken(d.JWT, token)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"error": "invalid or expired token"})
			return
		}
		claims = parsed
		if d.Cache != nil {
			if err := d.Cache.Set(ctx.Request().Context(), token, claims); err != nil {
				service.GetMonitor().RecordRedisError()
			}
		}
	}
	// Cached claims can outlive the signature window slightly; expiry is
	// still enforced here.
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		ctx.StopWithJSON(401, iris.Map{"error": "invalid or expired token"})
		return
	}
	if !claims.Admin {
		ctx.StopWithJSON(403, iris.Map{"error": "admin capability required"})
		return
	}
	ctx.Values().Set("adminTag", claims.Tag)
	ctx.Next()
}
