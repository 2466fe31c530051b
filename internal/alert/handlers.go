package alert

import (
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, participantAuth fiber.Handler) {
	r.Post("/send_alert", participantAuth, func(c *fiber.Ctx) error {
		senderID := c.Locals("participant_id").(string)
		name, _ := c.Locals("participant_name").(string)

		count, err := svc.Send(c.Context(), senderID, name)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"notified": count})
	})

	r.Get("/get_notifications", participantAuth, func(c *fiber.Ctx) error {
		notifications, err := svc.Unread(c.Context(), c.Locals("participant_id").(string))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"notifications": notifications})
	})

	r.Post("/mark_notifications_read", participantAuth, func(c *fiber.Ctx) error {
		var req MarkReadRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		if err := svc.MarkRead(c.Context(), c.Locals("participant_id").(string), req.IDs); err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"message": "notifications marked read"})
	})
}
