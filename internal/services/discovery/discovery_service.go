package discovery

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
)

type FundiLocation struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Skills       []string  `json:"skills"`
	Location     string    `json:"location"`
	Availability bool      `json:"availability"`
	Rating       string    `json:"rating"`
}

type DiscoveryService struct {
	DB *gorm.DB
}

func NewDiscoveryService(db *gorm.DB) *DiscoveryService {
	return &DiscoveryService{DB: db}
}

// FundiLocations lists onboarded fundis in fundi context that have
// coordinates. skill filters case-insensitively on any listed skill.
func (s *DiscoveryService) FundiLocations(ctx context.Context, skill string, availableOnly bool) ([]FundiLocation, error) {
	q := s.DB.WithContext(ctx).
		Select("users.*").
		Preload("FundiProfile").
		Joins("JOIN fundi_profiles ON fundi_profiles.user_id = users.id").
		Where("users.active_role = ? AND users.onboarding_complete = ? AND users.is_active = ?", models.RoleFundi, true, true).
		Where("fundi_profiles.latitude IS NOT NULL AND fundi_profiles.longitude IS NOT NULL")
	if availableOnly {
		q = q.Where("fundi_profiles.availability = ?", true)
	}

	var users []models.User
	if err := q.Order("users.name ASC").Find(&users).Error; err != nil {
		return nil, err
	}

	skill = strings.ToLower(strings.TrimSpace(skill))
	out := make([]FundiLocation, 0, len(users))
	for _, u := range users {
		p := u.FundiProfile
		if p == nil || p.Latitude == nil || p.Longitude == nil {
			continue
		}
		if skill != "" && !hasSkill(p.Skills, skill) {
			continue
		}
		out = append(out, FundiLocation{
			ID:           u.ID,
			Name:         u.Name,
			Latitude:     *p.Latitude,
			Longitude:    *p.Longitude,
			Skills:       []string(p.Skills),
			Location:     u.Location,
			Availability: p.Availability,
			Rating:       p.Rating.StringFixed(2),
		})
	}
	return out, nil
}

func hasSkill(skills datatypes.JSONSlice[string], needle string) bool {
	for _, s := range skills {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}
