package profiles

import (
	"time"

	"docredact-backend/internal/fieldservice"
)

// profileRequest accepts the field list as "fields" or, for older clients, "value".
type profileRequest struct {
	Label  string               `json:"label"`
	Fields []fieldservice.Field `json:"fields"`
	Value  []fieldservice.Field `json:"value"`
}

func (r profileRequest) fieldList() []fieldservice.Field {
	if r.Fields != nil {
		return r.Fields
	}
	return r.Value
}

// ProfileResponse is the outward-facing representation of a profile.
type ProfileResponse struct {
	ID        string               `json:"id"`
	Label     string               `json:"label"`
	Fields    []fieldservice.Field `json:"fields"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

func toResponse(p Profile) ProfileResponse {
	fields := p.Fields
	if fields == nil {
		fields = []fieldservice.Field{}
	}
	return ProfileResponse{
		ID:        p.ID,
		Label:     p.Label,
		Fields:    fields,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
