package models

import (
	"gorm.io/gorm"
)

// Area and district shortcuts as shown in the client UI.
var (
	Areas = []string{"KWN", "NT", "HKI"}

	Districts = map[string]string{
		"CW":  "Central and Western",
		"WC":  "Wan Chai",
		"E":   "Eastern",
		"S":   "Southern",
		"YTM": "Yau Tsim Mong",
		"SSP": "Sham Shui Po",
		"KC":  "Kowloon City",
		"WTS": "Wong Tai Sin",
		"KT":  "Kwun Tong",
		"NKT": "Kwai Tsing",
		"TW":  "Tsuen Wan",
		"TM":  "Tuen Mun",
		"YL":  "Yuen Long",
		"N":   "North",
		"TP":  "Tai Po",
		"ST":  "Sha Tin",
		"SK":  "Sai Kung",
		"I":   "Islands",
	}
)

const (
	MaxRoomNameLength  = 20
	MaxShortDespLength = 100
	MaxListEntries     = 30
)

// PartyRoom is a bookable venue. The uid is the 3-letter code printed on
// marketing material, so it stays short and human-readable.
type PartyRoom struct {
	gorm.Model
	UID            string `json:"uid" gorm:"uniqueIndex;size:3"`
	OwnerID        uint   `json:"-" gorm:"index"`
	Owner          *User  `json:"-" gorm:"foreignKey:OwnerID"`
	Name           string `json:"name" gorm:"size:20"`
	Area           string `json:"area" gorm:"size:3;default:KWN"`
	District       string `json:"district" gorm:"size:3;default:KT"`
	FullAddress    string `json:"full_address"`
	TransitionTime int    `json:"transition_time" gorm:"default:15"` // minutes between bookings
	MinNumUsers    int    `json:"min_num_users" gorm:"default:1"`
	MaxNumUsers    int    `json:"max_num_users" gorm:"default:10"`
	ShortDesp      string `json:"short_desp" gorm:"size:100"`
	Description    string `json:"description"`

	RuleList              StringList `json:"rule_list" gorm:"type:text"`
	VenueFaciList         StringList `json:"venue_faci_list" gorm:"type:text"`
	EntertainFaciList     StringList `json:"entertain_faci_list" gorm:"type:text"`
	BoardgameList         StringList `json:"boardgame_list" gorm:"type:text"`
	AdditionalServiceList StringList `json:"additional_service_list" gorm:"type:text"`
	BookingMethodList     StringList `json:"booking_method_list" gorm:"type:text"`
	GameList              JSONMap    `json:"game_list" gorm:"type:text"`
	ChargeList            JSONMap    `json:"charge_list" gorm:"type:text"`
	TransportList         JSONMap    `json:"transport_list" gorm:"type:text"`
}

// ValidArea reports whether the area shortcut is known.
func ValidArea(area string) bool {
	for _, a := range Areas {
		if a == area {
			return true
		}
	}
	return false
}

// ValidDistrict reports whether the district shortcut is known.
func ValidDistrict(district string) bool {
	_, ok := Districts[district]
	return ok
}

// RoomBrief is the nested room representation used inside booking
// responses: name instead of the internal id.
type RoomBrief struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Area     string `json:"area"`
	District string `json:"district"`
}

// Brief projects the room into its booking-response form.
func (r *PartyRoom) Brief() RoomBrief {
	return RoomBrief{UID: r.UID, Name: r.Name, Area: r.Area, District: r.District}
}
