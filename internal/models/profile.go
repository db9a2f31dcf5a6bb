package models

import "time"

// Profile holds a student's contact details. One row per account, created on first write.
type Profile struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"userId"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	Address     *string    `db:"address" json:"address,omitempty"`
	Location    *string    `db:"location" json:"location,omitempty"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"dateOfBirth,omitempty"`
	ImageURL    *string    `db:"image_url" json:"imageUrl,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// UpdateProfileRequest is a sparse profile patch.
type UpdateProfileRequest struct {
	Phone       *string    `json:"phone" validate:"omitempty,max=20"`
	Address     *string    `json:"address" validate:"omitempty,max=255"`
	Location    *string    `json:"location" validate:"omitempty,max=120"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
}

// UploadImageRequest carries an image as a data URI or base64 payload.
type UploadImageRequest struct {
	Image string `json:"image" validate:"required"`
}
