package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smilee3998/partyroom-server/internal/middleware"
	"github.com/smilee3998/partyroom-server/internal/models"
	"github.com/smilee3998/partyroom-server/internal/services"
)

const defaultReviewPageSize = 10

// ReviewHandler exposes review listing and creation.
type ReviewHandler struct {
	svc *services.ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(svc *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

// ListByRoom handles GET /api/reviews/:room_uid, public and paginated.
func (h *ReviewHandler) ListByRoom(c *fiber.Ctx) error {
	page, pageSize := pagination(c, defaultReviewPageSize)
	reviews, total, err := h.svc.ListByRoom(c.Params("room_uid"), (page-1)*pageSize, pageSize)
	if err != nil {
		return rejected(c, err)
	}

	entries := make([]fiber.Map, 0, len(reviews))
	for _, review := range reviews {
		entries = append(entries, reviewResponse(review))
	}
	return c.JSON(fiber.Map{
		"reviews": entries,
		"count":   total,
		"page":    page,
	})
}

// Create handles POST /api/reviews. With check_only set the handler only
// reports whether a review would be accepted.
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	var req services.CreateReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	user := middleware.CurrentUser(c)
	if req.CheckOnly {
		if _, err := h.svc.CanReview(user, req.RoomUID); err != nil {
			return rejected(c, err)
		}
		return c.JSON(fiber.Map{"allowed": true})
	}

	review, err := h.svc.Create(user, &req)
	if err != nil {
		return rejected(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reviewResponse(review))
}

func reviewResponse(review *models.Review) fiber.Map {
	return fiber.Map{
		"uid":        review.UID,
		"rating":     review.Rating,
		"comments":   review.Comments,
		"recommend":  review.Recommend,
		"created_at": review.CreatedAt,
	}
}
