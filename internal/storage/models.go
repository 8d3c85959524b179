package storage

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Payment methods recorded on an order.
const (
	PaymentCard = "card"
	PaymentCash = "cash"
)

// Order statuses. New orders always start as pending; later transitions are
// an administrative concern.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

type Brand struct {
	ID    int64  `db:"id"`
	Name  string `db:"name"`
	Image string `db:"image"`
}

type Shoe struct {
	ID          int64  `db:"id"`
	BrandID     int64  `db:"brand_id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Image       string `db:"image"`
	Price       int64  `db:"price"`
}

type Size struct {
	ID    int64  `db:"id"`
	Value string `db:"value"`
}

type Color struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
	Code string `db:"code"`
}

// Draft is the partial order a user accumulates while walking through the
// conversation. Fields are filled strictly in conversation order and the
// whole draft is dropped when the conversation resets.
type Draft struct {
	BrandID       *int64  `json:"brand_id,omitempty"`
	ShoeID        *int64  `json:"shoe_id,omitempty"`
	SizeID        *int64  `json:"size_id,omitempty"`
	ColorID       *int64  `json:"color_id,omitempty"`
	Address       *string `json:"address,omitempty"`
	Entrance      *string `json:"entrance,omitempty"`
	Apartment     *string `json:"apartment,omitempty"`
	PaymentMethod *string `json:"payment_method,omitempty"`
}

// Value serializes the draft into a jsonb column. An empty draft is stored
// as SQL NULL.
func (d Draft) Value() (driver.Value, error) {
	if d == (Draft{}) {
		return nil, nil
	}
	return json.Marshal(d)
}

// Scan reads the draft back from a jsonb column.
func (d *Draft) Scan(src any) error {
	if src == nil {
		*d = Draft{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported draft source type %T", src)
	}
	return json.Unmarshal(data, d)
}

// TelegramUser is the durable conversation state of one chat.
type TelegramUser struct {
	ChatID       int64          `db:"chat_id"`
	Username     sql.NullString `db:"username"`
	FirstName    sql.NullString `db:"first_name"`
	LastName     sql.NullString `db:"last_name"`
	CurrentState string         `db:"current_state"`
	Draft        Draft          `db:"temp_data"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

type Order struct {
	ID            int64          `db:"id"`
	ChatID        int64          `db:"chat_id"`
	ShoeID        int64          `db:"shoe_id"`
	ColorID       int64          `db:"color_id"`
	SizeID        int64          `db:"size_id"`
	Address       string         `db:"address"`
	Entrance      sql.NullString `db:"entrance"`
	Apartment     sql.NullString `db:"apartment"`
	PaymentMethod string         `db:"payment_method"`
	Status        string         `db:"status"`
	CreatedAt     time.Time      `db:"created_at"`
}
