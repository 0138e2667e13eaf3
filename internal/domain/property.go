package domain

import "time"

type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Property is a rental listing. Price is the nightly rate in whole USD.
type Property struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Coordinates Coords    `json:"coordinates"`
	Price       int64     `json:"price"`
	Images      []string  `json:"images"`
	Beds        int       `json:"beds"`
	Baths       int       `json:"baths"`
	Guests      int       `json:"guests"`
	Amenities   []string  `json:"amenities"`
	IsAvailable bool      `json:"isAvailable"`
	IsSuperhost bool      `json:"isSuperhost"`
	Rating      float64   `json:"rating"`
	Reviews     int       `json:"reviews"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PropertyInput is what a host submits through the listing form.
type PropertyInput struct {
	Title       string   `json:"title" validate:"required,min=3,max=200"`
	Description string   `json:"description" validate:"required,max=5000"`
	Location    string   `json:"location" validate:"required,max=255"`
	Lat         float64  `json:"lat" validate:"gte=-90,lte=90"`
	Lng         float64  `json:"lng" validate:"gte=-180,lte=180"`
	Price       int64    `json:"price" validate:"gt=0"`
	Images      []string `json:"images" validate:"omitempty,dive,url"`
	Beds        int      `json:"beds" validate:"gte=0,lte=100"`
	Baths       int      `json:"baths" validate:"gte=0,lte=100"`
	Guests      int      `json:"guests" validate:"gte=1,lte=99"`
	Amenities   []string `json:"amenities" validate:"omitempty,dive,min=1,max=64"`
	IsAvailable *bool    `json:"isAvailable,omitempty"`
}

// PropertyPatch carries a partial update; nil fields are left untouched.
type PropertyPatch struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,min=3,max=200"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=5000"`
	Location    *string   `json:"location,omitempty" validate:"omitempty,min=1,max=255"`
	Lat         *float64  `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lng         *float64  `json:"lng,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Price       *int64    `json:"price,omitempty" validate:"omitempty,gt=0"`
	Images      *[]string `json:"images,omitempty" validate:"omitempty,dive,url"`
	Beds        *int      `json:"beds,omitempty" validate:"omitempty,gte=0,lte=100"`
	Baths       *int      `json:"baths,omitempty" validate:"omitempty,gte=0,lte=100"`
	Guests      *int      `json:"guests,omitempty" validate:"omitempty,gte=1,lte=99"`
	Amenities   *[]string `json:"amenities,omitempty" validate:"omitempty,dive,min=1,max=64"`
	IsAvailable *bool     `json:"isAvailable,omitempty"`
}

type PropertyQuery struct {
	OwnerID        string
	LocationPrefix string
	OnlyAvailable  bool
	ByRating       bool // rating desc instead of newest first
	Limit          int
}
