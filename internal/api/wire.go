package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a backend identifier. The storefront API is not consistent about
// numeric versus string ids, so both decode into the same string form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Amount is a price or discount as the backend sent it. Numbers keep their
// literal text; strings such as "" or "N/A" are kept verbatim.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	*a = Amount(data)
	return nil
}

// MarshalJSON writes numeric amounts as numbers, empty ones as null and
// anything else as a string.
func (a Amount) MarshalJSON() ([]byte, error) {
	switch {
	case a == "":
		return []byte("null"), nil
	case a.IsNumber():
		return []byte(a), nil
	default:
		return json.Marshal(string(a))
	}
}

// IsNumber reports whether the amount is a JSON number literal.
func (a Amount) IsNumber() bool {
	if a == "" {
		return false
	}
	c := a[0]
	if c != '-' && (c < '0' || c > '9') {
		return false
	}
	return json.Valid([]byte(a))
}

func (a Amount) String() string {
	return string(a)
}

// ChannelFields carries the auth channel. The same field names are used by
// authenticate, verify and resend.
type ChannelFields struct {
	Email       string `json:"email,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// AuthenticateRequest is the body of POST /auth/authenticate.
type AuthenticateRequest struct {
	Action     string `json:"action"`
	AuthType   string `json:"auth_type"`
	Password   string `json:"password"`
	DeviceID   string `json:"device_id"`
	DeviceType string `json:"device_type"`
	ChannelFields
}

// VerifyRequest is the body of POST /auth/authenticate-pass.
type VerifyRequest struct {
	AuthType   string `json:"auth_type"`
	OTP        string `json:"otp"`
	DeviceID   string `json:"device_id"`
	DeviceType string `json:"device_type"`
	ChannelFields
}

// ResendRequest is the body of POST /auth/resend-otp.
type ResendRequest struct {
	AuthType string `json:"auth_type"`
	ChannelFields
}

// UserRecord is the profile the backend returns with a session.
type UserRecord struct {
	ID       ID     `json:"id"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	AuthType string `json:"auth_type,omitempty"`
}

// AuthResponse is the shared response body of authenticate and verify.
// Fields are optional on the wire; Decode* turns them into a result.
type AuthResponse struct {
	Success      bool        `json:"success"`
	User         *UserRecord `json:"user"`
	JWTToken     string      `json:"jwt_token"`
	RefreshToken string      `json:"refresh_token"`
	OTPExpiresIn *int        `json:"otp_expires_in"`
	Message      string      `json:"message"`
	Error        string      `json:"error"`
}

// ResendResponse is the body of a successful resend.
type ResendResponse struct {
	OTPExpiresIn *int   `json:"otp_expires_in"`
	Message      string `json:"message"`
}

// Named is a category or brand reference embedded in a product.
type Named struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Image is one product media entry.
type Image struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Variant is a purchasable variant of a product.
type Variant struct {
	ID ID `json:"id"`
}

// Product is one entry of GET /product.
type Product struct {
	ID       ID        `json:"id"`
	Name     string    `json:"name"`
	Price    Amount    `json:"price"`
	Category *Named    `json:"category,omitempty"`
	Brand    *Named    `json:"brand,omitempty"`
	Images   []Image   `json:"images,omitempty"`
	Variants []Variant `json:"variants,omitempty"`
}

// PlaceholderImageURL is shown when a product has no image media.
const PlaceholderImageURL = "https://via.placeholder.com/150"

// PrimaryImage returns the first media entry of type "image".
func (p Product) PrimaryImage() string {
	for _, img := range p.Images {
		if img.Type == "image" && img.URL != "" {
			return img.URL
		}
	}
	return PlaceholderImageURL
}

// FirstVariantID returns the first variant id, or nil when the product has none.
func (p Product) FirstVariantID() *ID {
	if len(p.Variants) == 0 || p.Variants[0].ID == "" {
		return nil
	}
	id := p.Variants[0].ID
	return &id
}

// Banner is one entry of GET /banner.
type Banner struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url"`
	LinkURL     string `json:"link_url,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Discount    Amount `json:"discount,omitempty"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

// AddWishlistRequest is the body of POST /wishlist/add.
type AddWishlistRequest struct {
	UserID    ID  `json:"user_id"`
	ProductID ID  `json:"product_id"`
	VariantID *ID `json:"variant_id"`
}

// AddWishlistResponse carries the backend-assigned wishlist entry id.
type AddWishlistResponse struct {
	UID ID `json:"uid"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (b errorBody) text() string {
	if b.Error != "" {
		return b.Error
	}
	return b.Message
}
