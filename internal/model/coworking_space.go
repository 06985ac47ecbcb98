package model

import (
	"strings"
	"time"
)

// CoworkingSpace is a bookable venue owned by a user.  Opening hours are
// "HH:MM" wall-clock strings.
type CoworkingSpace struct {
	ID         uint64    `json:"_id,string"`
	Name       string    `json:"name" validate:"required,max=50"`
	Address    string    `json:"address" validate:"required,max=255"`
	District   string    `json:"district" validate:"max=100"`
	Province   string    `json:"province" validate:"max=100"`
	PostalCode string    `json:"postalcode" validate:"omitempty,number,max=5"`
	Tel        string    `json:"tel" validate:"max=20"`
	Region     string    `json:"region" validate:"max=100"`
	OpenTime   string    `json:"openTime" validate:"required,clock"`
	CloseTime  string    `json:"closeTime" validate:"required,clock"`
	Owner      uint64    `json:"owner,string"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CoworkingSpaceView inlines the owner in place of its id.  Owner is nil
// when the owning account no longer exists.
type CoworkingSpaceView struct {
	CoworkingSpace
	Owner *User `json:"owner"`
}

// CoworkingSpaceInput is the body of create and update requests.  Nil
// fields are left untouched by Apply, which makes PUT a partial update.
type CoworkingSpaceInput struct {
	Name       *string `json:"name"`
	Address    *string `json:"address"`
	District   *string `json:"district"`
	Province   *string `json:"province"`
	PostalCode *string `json:"postalcode"`
	Tel        *string `json:"tel"`
	Region     *string `json:"region"`
	OpenTime   *string `json:"openTime"`
	CloseTime  *string `json:"closeTime"`
}

// Apply copies every provided field onto s.
func (in CoworkingSpaceInput) Apply(s *CoworkingSpace) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&s.Name, in.Name)
	set(&s.Address, in.Address)
	set(&s.District, in.District)
	set(&s.Province, in.Province)
	set(&s.PostalCode, in.PostalCode)
	set(&s.Tel, in.Tel)
	set(&s.Region, in.Region)
	set(&s.OpenTime, in.OpenTime)
	set(&s.CloseTime, in.CloseTime)
}
