package httpapi

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/fruitful/internal/server/models"
)

type listResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

type message struct {
	Message string `json:"message"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type userPublic struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newUserPublic(u *models.User) userPublic {
	return userPublic{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

type fruitPublic struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	UserID    string    `json:"user_id"`
	BucketID  *string   `json:"bucket_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newFruitPublic(f *models.Fruit) fruitPublic {
	return fruitPublic{
		ID:        f.ID,
		Name:      f.Name,
		Price:     f.Price,
		UserID:    f.UserID,
		BucketID:  f.BucketID,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func newFruitList(fruits []*models.Fruit) listResponse[fruitPublic] {
	out := listResponse[fruitPublic]{Data: make([]fruitPublic, 0, len(fruits)), Count: len(fruits)}
	for _, f := range fruits {
		out.Data = append(out.Data, newFruitPublic(f))
	}
	return out
}

type bucketPublic struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Capacity  int       `json:"capacity"`
	FruitIDs  []string  `json:"fruit_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newBucketPublic(b *models.Bucket) bucketPublic {
	return bucketPublic{
		ID:        b.ID,
		UserID:    b.UserID,
		Capacity:  b.Capacity,
		FruitIDs:  b.FruitIDs(),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

type userSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type userCreateRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	IsSuperuser bool   `json:"is_superuser"`
}

type userUpdateMeRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
}

type userUpdateRequest struct {
	Email       *string `json:"email"`
	FullName    *string `json:"full_name"`
	Password    *string `json:"password"`
	IsSuperuser *bool   `json:"is_superuser"`
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type bucketCreateRequest struct {
	UserID   *string  `json:"user_id"`
	Capacity int      `json:"capacity"`
	Fruits   []string `json:"fruits"`
}

type bucketUpdateRequest struct {
	UserID   *string   `json:"user_id"`
	Capacity *int      `json:"capacity"`
	Fruits   *[]string `json:"fruits"`
}

type fruitCreateRequest struct {
	UserID            *string `json:"user_id"`
	Name              string  `json:"name"`
	Price             int64   `json:"price"`
	ExpirationSeconds int     `json:"expiration_seconds"`
	BucketID          *string `json:"bucket_id"`
}

type fruitUpdateRequest struct {
	Name              *string        `json:"name"`
	Price             *int64         `json:"price"`
	ExpirationSeconds *int           `json:"expiration_seconds"`
	BucketID          optionalString `json:"bucket_id"`
}

// optionalString tells an absent field from an explicit null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
