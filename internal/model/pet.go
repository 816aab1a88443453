package model

import "time"

// Pet belongs to exactly one client.
type Pet struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Species   string     `json:"species"`
	Breed     string     `json:"breed,omitempty"`
	OwnerID   string     `json:"owner_id"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Weight    float64    `json:"weight,omitempty"`
	Microchip string     `json:"microchip,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type CreatePetRequest struct {
	OwnerID   string     `json:"owner_id"`
	Name      string     `json:"name" validate:"notblank"`
	Species   string     `json:"species" validate:"notblank"`
	Breed     string     `json:"breed"`
	BirthDate *time.Time `json:"birth_date"`
	Weight    float64    `json:"weight" validate:"gte=0"`
	Microchip string     `json:"microchip"`
}

type UpdatePetRequest struct {
	Name      *string    `json:"name"`
	Species   *string    `json:"species"`
	Breed     *string    `json:"breed"`
	BirthDate *time.Time `json:"birth_date"`
	Weight    *float64   `json:"weight"`
	Microchip *string    `json:"microchip"`
}

// Apply copies the non-nil fields onto p.
func (r *UpdatePetRequest) Apply(p *Pet) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Species != nil {
		p.Species = *r.Species
	}
	if r.Breed != nil {
		p.Breed = *r.Breed
	}
	if r.BirthDate != nil {
		p.BirthDate = r.BirthDate
	}
	if r.Weight != nil {
		p.Weight = *r.Weight
	}
	if r.Microchip != nil {
		p.Microchip = *r.Microchip
	}
}
