package bot

import (
	"context"

	"shoeshop-bot/internal/storage"
)

// Button is one selectable option; Data round-trips back as the callback
// payload of a MenuSelection.
type Button struct {
	Label string
	Data  string
}

// Menu is an ordered grid of buttons rendered alongside a message.
type Menu [][]Button

// Catalog is the read-only view of brands, models, sizes and colors.
type Catalog interface {
	Brands(ctx context.Context) ([]storage.Brand, error)
	BrandByID(ctx context.Context, brandID int64) (*storage.Brand, error)
	ShoesOfBrand(ctx context.Context, brandID int64) ([]storage.Shoe, error)
	ShoeByID(ctx context.Context, shoeID int64) (*storage.Shoe, error)
	SizeByID(ctx context.Context, sizeID int64) (*storage.Size, error)
	ColorByID(ctx context.Context, colorID int64) (*storage.Color, error)
	SizesOfShoe(ctx context.Context, shoeID int64) ([]storage.Size, error)
	ColorsOfShoe(ctx context.Context, shoeID int64) ([]storage.Color, error)
}

// Users is the durable per-chat conversation state store.
type Users interface {
	GetOrCreateUser(ctx context.Context, chatID int64, username, firstName, lastName string) (*storage.TelegramUser, error)
	SaveUser(ctx context.Context, user *storage.TelegramUser) error
}

// Orders finalizes conversations. CreateOrderAndReset must atomically insert
// the order and reset the user's conversation state.
type Orders interface {
	CreateOrderAndReset(ctx context.Context, order storage.Order) (*storage.Order, error)
}

// Gateway delivers outbound messages. Sends happen after state persistence
// and are best effort: a failed send never rolls back committed state.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string, menu Menu) error
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, menu Menu) error
}
