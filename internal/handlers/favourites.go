package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/smilee3998/partyroom-server/internal/errcodes"
	"github.com/smilee3998/partyroom-server/internal/middleware"
	"github.com/smilee3998/partyroom-server/internal/models"
	"github.com/smilee3998/partyroom-server/internal/storage"
)

// FavouritesHandler manages the authenticated user's favourite rooms.
type FavouritesHandler struct {
	store storage.Store
}

// NewFavouritesHandler creates a new favourites handler
func NewFavouritesHandler(store storage.Store) *FavouritesHandler {
	return &FavouritesHandler{store: store}
}

type favouriteRequest struct {
	RoomUID *string `json:"partyroom_uid"`
}

// List handles GET /api/accounts/favourites.
func (h *FavouritesHandler) List(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	rooms, err := h.store.GetFavourites(user.ID)
	if err != nil {
		return rejected(c, err)
	}
	uids := make([]string, 0, len(rooms))
	for _, room := range rooms {
		uids = append(uids, room.UID)
	}
	return c.JSON(fiber.Map{"favourites": uids})
}

// Add handles PUT /api/accounts/favourites.
func (h *FavouritesHandler) Add(c *fiber.Ctx) error {
	room, err := h.parseRoom(c)
	if err != nil {
		return rejected(c, err)
	}

	user := middleware.CurrentUser(c)
	count, err := h.store.CountFavourites(user.ID)
	if err != nil {
		return rejected(c, err)
	}
	if count >= models.MaxFavourites {
		return rejected(c, errcodes.New(errcodes.FavouritesFull))
	}

	if err := h.store.AddFavourite(user.ID, room.ID); err != nil {
		return rejected(c, err)
	}
	return h.List(c)
}

// Remove handles DELETE /api/accounts/favourites.
func (h *FavouritesHandler) Remove(c *fiber.Ctx) error {
	room, err := h.parseRoom(c)
	if err != nil {
		return rejected(c, err)
	}

	user := middleware.CurrentUser(c)
	isFav, err := h.store.IsFavourite(user.ID, room.ID)
	if err != nil {
		return rejected(c, err)
	}
	if !isFav {
		return rejected(c, errcodes.New(errcodes.RoomNotInFavourites))
	}

	if err := h.store.RemoveFavourite(user.ID, room.ID); err != nil {
		return rejected(c, err)
	}
	return h.List(c)
}

// parseRoom extracts and resolves the partyroom_uid field. A missing field
// and an empty value surface as distinct codes.
func (h *FavouritesHandler) parseRoom(c *fiber.Ctx) (*models.PartyRoom, error) {
	var req favouriteRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, errcodes.New(errcodes.RequestBodyInvalid)
	}
	if req.RoomUID == nil {
		return nil, errcodes.New(errcodes.RoomUIDNotIncluded)
	}
	if *req.RoomUID == "" {
		return nil, errcodes.New(errcodes.RoomUIDFieldEmpty)
	}

	room, err := h.store.GetRoomByUID(*req.RoomUID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errcodes.New(errcodes.RoomInexist)
		}
		return nil, err
	}
	return room, nil
}
