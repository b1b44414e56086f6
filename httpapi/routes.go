package httpapi

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/dwnlabs/dwn-core/dwnmessage"
	"github.com/dwnlabs/dwn-core/handler"
	"github.com/dwnlabs/dwn-core/store"
)

// registerRoutes wires the two DWN operations spec.md §6 describes:
// write a CollectionsWrite message, and query a tenant's records.
// Tenant is a path segment rather than a header since every operation
// in this pipeline is already scoped to one, mirroring the teacher's
// own /api/v1/:entity-style resource routes.
func registerRoutes(app *fiber.App, h *handler.Handler) {
	v1 := app.Group("/dwn/v1/:tenant")

	v1.Post("/records", func(c *fiber.Ctx) error { return handleWrite(c, h) })
	v1.Get("/records", func(c *fiber.Ctx) error { return handleQuery(c, h) })
}

func handleWrite(c *fiber.Ctx, h *handler.Handler) error {
	var msg dwnmessage.Message
	if err := c.BodyParser(&msg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed message envelope: "+err.Error())
	}

	reply, err := h.HandleWrite(c.UserContext(), c.Params("tenant"), &msg)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	body := fiber.Map{"status": reply.Code}
	if reply.Detail != "" {
		body["detail"] = reply.Detail
	}
	if reply.MessageCID != "" {
		body["messageCid"] = reply.MessageCID
	}

	return c.Status(reply.Code).JSON(body)
}

func handleQuery(c *fiber.Ctx, h *handler.Handler) error {
	opts := []store.FilterOption{}

	if v := c.Query("recordId"); v != "" {
		opts = append(opts, store.WithRecordID(v))
	}
	if v := c.Query("contextId"); v != "" {
		opts = append(opts, store.WithContextID(v))
	}
	if v := c.Query("protocol"); v != "" {
		opts = append(opts, store.WithProtocol(v))
	}
	if v := c.Query("schema"); v != "" {
		opts = append(opts, store.WithSchema(v))
	}
	if v := c.Query("recipient"); v != "" {
		opts = append(opts, store.WithRecipient(v))
	}
	if v := c.Query("author"); v != "" {
		opts = append(opts, store.WithAuthor(v))
	}
	if c.QueryBool("latestTipOnly", false) {
		opts = append(opts, store.WithLatestTipOnly())
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts = append(opts, store.WithLimit(n))
		}
	}

	reply, err := h.HandleQuery(c.UserContext(), c.Params("tenant"), store.NewFilter(opts...))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.Status(reply.Code).JSON(fiber.Map{"records": reply.Records})
}
