package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/smilee3998/partyroom-server/internal/errcodes"
	"github.com/smilee3998/partyroom-server/internal/middleware"
	"github.com/smilee3998/partyroom-server/internal/models"
	"github.com/smilee3998/partyroom-server/internal/services"
)

// slotTimeLayout is the minute-resolution format the client renders
// unavailable slots with.
const slotTimeLayout = "2006-01-02T15:04"

// BookingHandler handles reservation and booking lookup requests.
type BookingHandler struct {
	svc *services.BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(svc *services.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

// Reserve handles POST /api/bookings/reserve.
func (h *BookingHandler) Reserve(c *fiber.Ctx) error {
	var req services.ReserveRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	user := middleware.CurrentUser(c)
	booking, err := h.svc.Reserve(user, &req)
	if err != nil {
		return rejected(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(bookingResponse(booking))
}

// CheckTime handles GET /api/bookings/check_time. Both query parameters
// are required; the response is the list of occupied slots for the day.
func (h *BookingHandler) CheckTime(c *fiber.Ctx) error {
	roomUID := c.Query("partyroom_uid")
	day := c.Query("booking_date")
	if roomUID == "" || day == "" {
		return rejected(c, errcodes.New(errcodes.BookingCheckParamMissing))
	}

	slots, err := h.svc.UnavailableSlots(roomUID, day)
	if err != nil {
		return rejected(c, err)
	}

	out := make([]fiber.Map, 0, len(slots))
	for _, slot := range slots {
		out = append(out, fiber.Map{
			"start_time": slot.StartTime.UTC().Format(slotTimeLayout),
			"end_time":   slot.EndTime.UTC().Format(slotTimeLayout),
		})
	}
	return c.JSON(out)
}

// MyBookings handles GET /api/bookings/my_bookings.
func (h *BookingHandler) MyBookings(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	bookings, err := h.svc.ListByUser(user)
	if err != nil {
		return rejected(c, err)
	}

	out := make([]fiber.Map, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, bookingListEntry(b))
	}
	return c.JSON(fiber.Map{
		"bookings": out,
		"count":    len(out),
	})
}

// Detail handles GET /api/bookings/my_booking/:uid.
func (h *BookingHandler) Detail(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	booking, err := h.svc.GetByUID(user, c.Params("uid"))
	if err != nil {
		return rejected(c, err)
	}
	return c.JSON(bookingResponse(booking))
}

// Cancel handles DELETE /api/bookings/my_booking/:uid. The booking is kept
// with status canceled.
func (h *BookingHandler) Cancel(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if err := h.svc.Cancel(user, c.Params("uid")); err != nil {
		return rejected(c, err)
	}
	return success(c, nil)
}

// bookingResponse serializes a booking with the room shown by name.
func bookingResponse(b *models.Booking) fiber.Map {
	resp := fiber.Map{
		"uid":         b.UID,
		"start_time":  b.StartTime.UTC().Format(time.RFC3339),
		"end_time":    b.EndTime.UTC().Format(time.RFC3339),
		"status":      b.Status,
		"num_users":   b.NumUsers,
		"unit_price":  b.UnitPrice,
		"total_price": b.TotalPrice,
	}
	if b.Room != nil {
		resp["partyroom"] = b.Room.Name
	}
	return resp
}

func bookingListEntry(b *models.Booking) fiber.Map {
	entry := fiber.Map{
		"uid":        b.UID,
		"start_time": b.StartTime.UTC().Format(time.RFC3339),
		"end_time":   b.EndTime.UTC().Format(time.RFC3339),
		"status":     b.Status,
	}
	if b.Room != nil {
		entry["partyroom"] = b.Room.Brief()
	}
	return entry
}
