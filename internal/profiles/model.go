package profiles

import (
	"time"

	"docredact-backend/internal/fieldservice"
)

// Profile is a named, reusable field list used to parameterize extraction.
type Profile struct {
	ID        string
	Label     string
	Fields    []fieldservice.Field
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Spec converts the profile into an extraction field spec. An empty profile
// means the service default.
func (p Profile) Spec() fieldservice.FieldSpec {
	if len(p.Fields) == 0 {
		return fieldservice.DefaultSpec()
	}
	fields := make([]fieldservice.Field, len(p.Fields))
	copy(fields, p.Fields)
	return fieldservice.FieldSpec{Fields: fields}
}

func (p Profile) clone() Profile {
	if p.Fields != nil {
		fields := make([]fieldservice.Field, len(p.Fields))
		copy(fields, p.Fields)
		p.Fields = fields
	}
	return p
}
