package node

import (
	"github.com/gofiber/fiber/v2"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/transport"
)

// Handlers serves the node API on top of a simulated chain.
type Handlers struct {
	chain *transport.Simulated
}

// Provision executes one provisioning request.
func (h *Handlers) Provision(c *fiber.Ctx) error {
	var req transport.Request
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Action == "" {
		return fiber.NewError(fiber.StatusBadRequest, "action is required")
	}

	switch req.Kind {
	case transport.KindDeploy, transport.KindCall, transport.KindAccount:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "invalid kind: "+string(req.Kind))
	}

	handle, err := h.chain.Provision(c.UserContext(), req)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return c.Status(fiber.StatusOK).JSON(transport.ProvisionResponse{Handle: handle})
}

// Requests lists every request the node has received, in order.
func (h *Handlers) Requests(c *fiber.Ctx) error {
	return c.JSON(h.chain.Requests())
}

// Accounts lists the pre-funded accounts of the chain.
func (h *Handlers) Accounts(c *fiber.Ctx) error {
	return c.JSON(h.chain.Accounts())
}
