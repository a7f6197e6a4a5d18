package handlers

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/smilee3998/partyroom-server/internal/errcodes"
	"github.com/smilee3998/partyroom-server/internal/middleware"
	"github.com/smilee3998/partyroom-server/internal/models"
	"github.com/smilee3998/partyroom-server/internal/storage"
)

const defaultRoomPageSize = 20

// RoomHandler serves the public room catalogue and roomer-side creation.
type RoomHandler struct {
	store storage.Store
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(store storage.Store) *RoomHandler {
	return &RoomHandler{store: store}
}

// List handles GET /api/rooms. Area, district and num_users query
// parameters narrow the result; pagination via page/page_size.
func (h *RoomHandler) List(c *fiber.Ctx) error {
	filter := &storage.RoomFilter{
		Area:     c.Query("area"),
		District: c.Query("district"),
	}
	if raw := c.Query("num_users"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return rejected(c, errcodes.New(errcodes.RequestBodyInvalid))
		}
		filter.NumUsers = n
	}
	if filter.Area != "" && !models.ValidArea(filter.Area) {
		return rejected(c, errcodes.New(errcodes.RequestBodyInvalid))
	}
	if filter.District != "" && !models.ValidDistrict(filter.District) {
		return rejected(c, errcodes.New(errcodes.RequestBodyInvalid))
	}

	page, pageSize := pagination(c, defaultRoomPageSize)
	rooms, total, err := h.store.ListRooms(filter, (page-1)*pageSize, pageSize)
	if err != nil {
		return rejected(c, err)
	}

	briefs := make([]models.RoomBrief, 0, len(rooms))
	for _, room := range rooms {
		briefs = append(briefs, room.Brief())
	}
	return c.JSON(fiber.Map{
		"rooms": briefs,
		"count": total,
		"page":  page,
	})
}

// Detail handles GET /api/rooms/:uid with the aggregate review rating and
// the cover image when one exists on disk.
func (h *RoomHandler) Detail(c *fiber.Ctx) error {
	room, err := h.store.GetRoomByUID(c.Params("uid"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return rejected(c, errcodes.New(errcodes.RoomInexist))
		}
		return rejected(c, err)
	}

	rating, err := h.store.GetRoomRating(room.ID)
	if err != nil {
		return rejected(c, err)
	}

	resp := fiber.Map{
		"partyroom":    room,
		"rating_stars": rating,
	}
	if cover := loadCoverImage(room.UID); cover != "" {
		resp["cover_image"] = cover
	}
	return c.JSON(resp)
}

// Create handles POST /api/rooms. Restricted to verified roomer accounts
// by the route middleware.
func (h *RoomHandler) Create(c *fiber.Ctx) error {
	var room models.PartyRoom
	if err := c.BodyParser(&room); err != nil {
		return badBody(c)
	}

	var fieldErrs errcodes.List
	if room.Name == "" || len(room.Name) > models.MaxRoomNameLength {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.RoomNameInvalid))
	}
	if len(room.ShortDesp) > models.MaxShortDespLength {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.RequestBodyInvalid))
	}
	if len(room.RuleList) > models.MaxListEntries || len(room.BoardgameList) > models.MaxListEntries {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.RequestBodyInvalid))
	}
	if room.Area != "" && !models.ValidArea(room.Area) {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.RequestBodyInvalid))
	}
	if room.District != "" && !models.ValidDistrict(room.District) {
		fieldErrs = append(fieldErrs, errcodes.New(errcodes.RequestBodyInvalid))
	}
	if len(fieldErrs) > 0 {
		return rejected(c, fieldErrs)
	}

	room.ID = 0
	room.UID = ""
	room.OwnerID = middleware.CurrentUser(c).ID
	created, err := h.store.CreateRoom(&room)
	if err != nil {
		return rejected(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// loadCoverImage returns the base64 cover for a room uid, or "" when the
// image directory is unset or the file is missing.
func loadCoverImage(uid string) string {
	dir := os.Getenv("ROOM_IMAGE_DIR")
	if dir == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(dir, uid+".jpg"))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("room_uid", uid).Msg("Failed to read cover image")
		}
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// pagination reads page/page_size query params with sane bounds.
func pagination(c *fiber.Ctx, defaultSize int) (page, pageSize int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.Query("page_size", strconv.Itoa(defaultSize)))
	if pageSize < 1 || pageSize > 100 {
		pageSize = defaultSize
	}
	return page, pageSize
}
