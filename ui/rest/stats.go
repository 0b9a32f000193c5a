package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wappanel/wappanel/pkg/msgworker"
	"github.com/wappanel/wappanel/pkg/ttlcache"
	"github.com/wappanel/wappanel/pkg/utils"
	tenantsApp "github.com/wappanel/wappanel/tenants/application"
)

type Stats struct {
	Cache       *ttlcache.Cache
	ClientCache *tenantsApp.ClientCache
	Pool        *msgworker.Pool
}

func InitRestStats(app fiber.Router, cache *ttlcache.Cache, clientCache *tenantsApp.ClientCache, pool *msgworker.Pool) Stats {
	handler := Stats{Cache: cache, ClientCache: clientCache, Pool: pool}

	app.Get("/stats/cache", handler.CacheStats)
	app.Post("/stats/cache/clear", handler.ClearCache)
	app.Get("/stats/workerpool", handler.PoolStats)

	return handler
}

func (h *Stats) CacheStats(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache stats retrieved",
		Results: map[string]any{
			"generic": h.Cache.Stats(),
			"tenants": map[string]int{"size": h.ClientCache.Size()},
		},
	})
}

func (h *Stats) ClearCache(c *fiber.Ctx) error {
	h.Cache.Clear()

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache cleared",
	})
}

func (h *Stats) PoolStats(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Worker pool stats retrieved",
		Results: h.Pool.GetStats(),
	})
}
