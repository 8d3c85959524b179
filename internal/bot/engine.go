package bot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"shoeshop-bot/internal/storage"

	"go.uber.org/zap"
)

// Engine is the conversation state machine. It consumes inbound events, maps
// (current state, event) to (next state, draft mutation, outbound message)
// and persists every mutation before anything is sent.
type Engine struct {
	catalog  Catalog
	users    Users
	orders   Orders
	gw       Gateway
	images   *ImageResolver
	adminIDs []int64
	logger   *zap.Logger
}

func NewEngine(
	catalog Catalog,
	users Users,
	orders Orders,
	gw Gateway,
	images *ImageResolver,
	adminIDs []int64,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		catalog:  catalog,
		users:    users,
		orders:   orders,
		gw:       gw,
		images:   images,
		adminIDs: adminIDs,
		logger:   logger,
	}
}

// HandleText processes an inbound free-text event.
func (e *Engine) HandleText(ctx context.Context, ev TextMessage) error {
	user, err := e.lookupUser(ctx, ev.ChatID, ev.Profile)
	if err != nil {
		return err
	}

	text := strings.TrimSpace(ev.Text)
	if text == "/start" {
		return e.startConversation(ctx, user)
	}

	switch user.CurrentState {
	case StateStart:
		return e.startConversation(ctx, user)
	case StateWaitingAddress:
		return e.handleAddressInput(ctx, user, text)
	case StateWaitingEntrance:
		return e.handleEntranceInput(ctx, user, text)
	case StateWaitingApartment:
		return e.handleApartmentInput(ctx, user, text)
	default:
		e.trySend(ctx, user.ChatID, msgUseMenu, nil)
		return fmt.Errorf("text in state %s: %w", user.CurrentState, ErrUnexpectedEvent)
	}
}

// HandleSelection processes an inbound menu-choice event.
func (e *Engine) HandleSelection(ctx context.Context, ev MenuSelection) error {
	user, err := e.lookupUser(ctx, ev.ChatID, ev.Profile)
	if err != nil {
		return err
	}

	// Any event restarts a conversation that is sitting in the initial state.
	if user.CurrentState == StateStart {
		return e.startConversation(ctx, user)
	}

	switch ev.Action {
	case ActionSelectBrand:
		return e.handleBrandSelection(ctx, user, ev.ID)
	case ActionSelectShoe:
		return e.handleShoeSelection(ctx, user, ev.ID)
	case ActionSelectSize:
		return e.handleSizeSelection(ctx, user, ev.ID)
	case ActionSelectColor:
		return e.handleColorSelection(ctx, user, ev.ID)
	case ActionSelectPayment:
		return e.handlePaymentSelection(ctx, user, ev.Method)
	default:
		e.trySend(ctx, user.ChatID, msgUseMenu, nil)
		return fmt.Errorf("unknown action %q: %w", ev.Action, ErrUnexpectedEvent)
	}
}

// Restart resets the conversation unconditionally, usable from any state.
func (e *Engine) Restart(ctx context.Context, chatID int64, profile Profile) error {
	user, err := e.lookupUser(ctx, chatID, profile)
	if err != nil {
		return err
	}
	return e.startConversation(ctx, user)
}

func (e *Engine) lookupUser(ctx context.Context, chatID int64, profile Profile) (*storage.TelegramUser, error) {
	user, err := e.users.GetOrCreateUser(ctx, chatID, profile.Username, profile.FirstName, profile.LastName)
	if err != nil {
		e.logger.Error("Failed to get user state",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		e.trySend(ctx, chatID, msgInternalError, nil)
		return nil, err
	}
	return user, nil
}

// startConversation clears the draft and presents the brand menu.
func (e *Engine) startConversation(ctx context.Context, user *storage.TelegramUser) error {
	brands, err := e.catalog.Brands(ctx)
	if err != nil {
		e.trySend(ctx, user.ChatID, msgInternalError, nil)
		return fmt.Errorf("list brands: %w", err)
	}

	user.CurrentState = StateSelectingShoe
	user.Draft = storage.Draft{}
	if err := e.saveUser(ctx, user); err != nil {
		return err
	}

	return e.send(ctx, user.ChatID, msgWelcome, brandMenu(brands))
}

func (e *Engine) handleBrandSelection(ctx context.Context, user *storage.TelegramUser, brandID int64) error {
	if user.CurrentState != StateSelectingShoe {
		e.trySend(ctx, user.ChatID, msgUseMenu, nil)
		return fmt.Errorf("brand selection in state %s: %w", user.CurrentState, ErrUnexpectedEvent)
	}

	brand, err := e.catalog.BrandByID(ctx, brandID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			e.trySend(ctx, user.ChatID, msgBrandNotFound, nil)
			return err
		}
		e.trySend(ctx, user.ChatID, msgInternalError, nil)
		return err
	}

	shoes, err := e.catalog.ShoesOfBrand(ctx, brand.ID)
	if err != nil {
		e.trySend(ctx, user.ChatID, msgInternalError, nil)
		return fmt.Errorf("list shoes of brand %d: %w", brand.ID, err)
	}

	user.Draft.BrandID = &brand.ID
	if err := e.saveUser(ctx, user); err != nil {
		return err
	}

	if brand.Image != "" {
		e.trySendPhoto(ctx, user.ChatID, e.images.Resolve(brand.Image), "")
	}

	text := fmt.Sprintf("Вы выбрали бренд: %s\nВыберите модель:", brand.Name)
	return e.send(ctx, user.ChatID, text, shoeMenu(shoes))
}

func (e *Engine) handleShoeSelection(ctx context.Context, user *storage.TelegramUser, shoeID int64) error {
	if user.CurrentState != StateSelectingShoe || user.Draft.BrandID == nil {
		e.trySend(ctx, user.ChatID, msgUseMenu, nil)
		return fmt.Errorf("shoe selection in state %s: %w", user.CurrentState, ErrUnexpectedEvent)
	}

	shoe, err := e.catalog.ShoeByID(ctx, shoeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			e.trySend(ctx, user.ChatID, msgShoeNotFound, nil)
			return err
		}
		e.trySend(ctx, user.ChatID, msgInternalError, nil)
		return err
	}

	sizes, err := e.catalog.SizesOfShoe(ctx, shoe.ID)
	if err != nil {
		e.trySend(ctx, user.ChatID, msgInternalError, nil)
		return fmt.Errorf("list sizes of shoe %d: %w", shoe.ID, err)
	}

	user.Draft.ShoeID = &shoe.ID
	user.CurrentState = StateSelectingSize
	if err := e.saveUser(ctx, user); err != nil {
		return err
	}

	if shoe.Image != "" {
		e.trySendPhoto(ctx, user.ChatID, e.images.Resolve(shoe.Image), shoe.Description)
	}

	text := fmt.Sprintf("Вы выбрали модель: %s\nВыберите размер:", shoe.Name)
	return e.send(ctx, user.ChatID, text, sizeMenu(sizes))
}

func (e *Engine) handleSizeSelection(ctx context.Context, user *storage.TelegramUser, sizeID int64) error {
	if user.CurrentState != StateSelectingSize || user.Draft.ShoeID == nil {
		e.trySend(ctx, user.ChatID, msgUseMenu, nil)
		return fmt.Errorf("size selection in state %s: %w", user.CurrentState, ErrUnexpectedEvent)
	}

	size, err := e.catalog.SizeByID(ctx, sizeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			e.trySend(ctx, user.ChatID, msgSizeNotFound, nil)
			return err
		}
		e.trySend(ctx, user.ChatID, msgInternalError, nil)
		return err
	}

	sizes, err := e.catalog.SizesOfShoe(ctx, *user.Draft.ShoeID)
	if err != nil {
		e.trySend(ctx, user.ChatID, msgInternalError, nil)
		return fmt.Errorf("list sizes of shoe %d: %w", *user.Draft.ShoeID, err)
	}
	if !containsSize(sizes, size.ID) {
		e.trySend(ctx, user.ChatID, msgSizeUnavailable, nil)
		return fmt.Errorf("size %d for shoe %d: %w", size.ID, *user.Draft.ShoeID, ErrInvalidAssociation)
	}

	colors, err := e.catalog.ColorsOfShoe(ctx, *user.Draft.ShoeID)
	if err != nil {
		e.trySend(ctx, user.ChatID, msgInternalError, nil)
		return fmt.Errorf("list colors of shoe %d: %w", *user.Draft.ShoeID, err)
	}

	user.Draft.SizeID = &size.ID
	user.CurrentState = StateSelectingColor
	if err := e.saveUser(ctx, user); err != nil {
		return err
	}

	text := fmt.Sprintf("Вы выбрали размер: %s\nВыберите цвет:", size.Value)
	return e.send(ctx, user.ChatID, text, colorMenu(colors))
}

func (e *Engine) handleColorSelection(ctx context.Context, user *storage.TelegramUser, colorID int64) error {
	if user.CurrentState != StateSelectingColor || user.Draft.ShoeID == nil {
		e.trySend(ctx, user.ChatID, msgUseMenu, nil)
		return fmt.Errorf("color selection in state %s: %w", user.CurrentState, ErrUnexpectedEvent)
	}

	color, err := e.catalog.ColorByID(ctx, colorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			e.trySend(ctx, user.ChatID, msgColorNotFound, nil)
			return err
		}
		e.trySend(ctx, user.ChatID, msgInternalError, nil)
		return err
	}

	colors, err := e.catalog.ColorsOfShoe(ctx, *user.Draft.ShoeID)
	if err != nil {
		e.trySend(ctx, user.ChatID, msgInternalError, nil)
		return fmt.Errorf("list colors of shoe %d: %w", *user.Draft.ShoeID, err)
	}
	if !containsColor(colors, color.ID) {
		e.trySend(ctx, user.ChatID, msgColorUnavailable, nil)
		return fmt.Errorf("color %d for shoe %d: %w", color.ID, *user.Draft.ShoeID, ErrInvalidAssociation)
	}

	user.Draft.ColorID = &color.ID
	user.CurrentState = StateWaitingAddress
	if err := e.saveUser(ctx, user); err != nil {
		return err
	}

	text := fmt.Sprintf("Вы выбрали цвет: %s\nТеперь введите адрес доставки:", color.Name)
	return e.send(ctx, user.ChatID, text, nil)
}

func (e *Engine) handleAddressInput(ctx context.Context, user *storage.TelegramUser, address string) error {
	if address == "" {
		e.trySend(ctx, user.ChatID, msgEmptyAddress, nil)
		return fmt.Errorf("empty address: %w", ErrUnexpectedEvent)
	}

	user.Draft.Address = &address
	user.CurrentState = StateWaitingEntrance
	if err := e.saveUser(ctx, user); err != nil {
		return err
	}

	text := fmt.Sprintf("Адрес доставки: %s\nВведите номер подъезда:", address)
	return e.send(ctx, user.ChatID, text, nil)
}

func (e *Engine) handleEntranceInput(ctx context.Context, user *storage.TelegramUser, entrance string) error {
	user.Draft.Entrance = &entrance
	user.CurrentState = StateWaitingApartment
	if err := e.saveUser(ctx, user); err != nil {
		return err
	}

	text := fmt.Sprintf("Номер подъезда: %s\nВведите номер квартиры:", entrance)
	return e.send(ctx, user.ChatID, text, nil)
}

func (e *Engine) handleApartmentInput(ctx context.Context, user *storage.TelegramUser, apartment string) error {
	user.Draft.Apartment = &apartment
	user.CurrentState = StateSelectingPayment
	if err := e.saveUser(ctx, user); err != nil {
		return err
	}

	text := fmt.Sprintf("Номер квартиры: %s\nВыберите способ оплаты:", apartment)
	return e.send(ctx, user.ChatID, text, paymentMenu())
}

// handlePaymentSelection is the terminal transition: the order insert and the
// conversation reset commit together or not at all. Outbound sends happen
// strictly after the commit and never roll it back.
func (e *Engine) handlePaymentSelection(ctx context.Context, user *storage.TelegramUser, method string) error {
	if user.CurrentState != StateSelectingPayment {
		e.trySend(ctx, user.ChatID, msgUseMenu, nil)
		return fmt.Errorf("payment selection in state %s: %w", user.CurrentState, ErrUnexpectedEvent)
	}

	if method != storage.PaymentCard && method != storage.PaymentCash {
		e.trySend(ctx, user.ChatID, msgBadPayment, nil)
		return fmt.Errorf("payment method %q: %w", method, ErrUnexpectedEvent)
	}

	draft := user.Draft
	if draft.ShoeID == nil || draft.SizeID == nil || draft.ColorID == nil || draft.Address == nil {
		e.logger.Error("Draft incomplete at payment step",
			zap.Int64("chat_id", user.ChatID),
			zap.String("state", user.CurrentState))
		return e.startConversation(ctx, user)
	}

	order, err := e.orders.CreateOrderAndReset(ctx, storage.Order{
		ChatID:        user.ChatID,
		ShoeID:        *draft.ShoeID,
		ColorID:       *draft.ColorID,
		SizeID:        *draft.SizeID,
		Address:       *draft.Address,
		Entrance:      nullString(draft.Entrance),
		Apartment:     nullString(draft.Apartment),
		PaymentMethod: method,
		Status:        storage.StatusPending,
	})
	if err != nil {
		e.logger.Error("Failed to create order",
			zap.Int64("chat_id", user.ChatID),
			zap.Error(err))
		e.trySend(ctx, user.ChatID, msgOrderFailed, nil)
		return err
	}

	// Mirror the committed reset so in-memory state matches the store.
	user.CurrentState = StateStart
	user.Draft = storage.Draft{}

	var sendErr error
	if text, ok := e.confirmationText(ctx, order); ok {
		sendErr = e.send(ctx, user.ChatID, text, nil)
	} else {
		sendErr = e.send(ctx, user.ChatID,
			fmt.Sprintf("✅ Заказ #%d успешно оформлен!", order.ID), nil)
	}

	// Offer a new order right away.
	if err := e.startConversation(ctx, user); err != nil && sendErr == nil {
		sendErr = err
	}
	return sendErr
}

// confirmationText resolves catalog names for the confirmation message and
// notifies admins along the way. Resolution failures degrade to a short
// confirmation instead of blocking the already committed order.
func (e *Engine) confirmationText(ctx context.Context, order *storage.Order) (string, bool) {
	shoe, err := e.catalog.ShoeByID(ctx, order.ShoeID)
	if err != nil {
		e.logger.Warn("Failed to resolve shoe for confirmation", zap.Error(err))
		return "", false
	}
	color, err := e.catalog.ColorByID(ctx, order.ColorID)
	if err != nil {
		e.logger.Warn("Failed to resolve color for confirmation", zap.Error(err))
		return "", false
	}
	size, err := e.catalog.SizeByID(ctx, order.SizeID)
	if err != nil {
		e.logger.Warn("Failed to resolve size for confirmation", zap.Error(err))
		return "", false
	}

	e.notifyAdmins(ctx, formatOrderNotification(order, shoe, color, size))

	return formatOrderConfirmation(order, shoe, color, size), true
}

func (e *Engine) notifyAdmins(ctx context.Context, text string) {
	for _, adminID := range e.adminIDs {
		e.trySend(ctx, adminID, text, nil)
	}
}

func (e *Engine) saveUser(ctx context.Context, user *storage.TelegramUser) error {
	if err := e.users.SaveUser(ctx, user); err != nil {
		e.logger.Error("Failed to save user state",
			zap.Int64("chat_id", user.ChatID),
			zap.Error(err))
		e.trySend(ctx, user.ChatID, msgInternalError, nil)
		return err
	}
	return nil
}

// send delivers a message and surfaces a delivery failure to the caller.
func (e *Engine) send(ctx context.Context, chatID int64, text string, menu Menu) error {
	if err := e.gw.SendText(ctx, chatID, text, menu); err != nil {
		e.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// trySend is for secondary messages (error prompts, photos, notifications):
// failures are logged and swallowed.
func (e *Engine) trySend(ctx context.Context, chatID int64, text string, menu Menu) {
	if err := e.gw.SendText(ctx, chatID, text, menu); err != nil {
		e.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

func (e *Engine) trySendPhoto(ctx context.Context, chatID int64, photoURL, caption string) {
	if err := e.gw.SendPhoto(ctx, chatID, photoURL, caption, nil); err != nil {
		e.logger.Error("Failed to send photo",
			zap.Int64("chat_id", chatID),
			zap.String("photo_url", photoURL),
			zap.Error(err))
	}
}

func containsSize(sizes []storage.Size, id int64) bool {
	for _, s := range sizes {
		if s.ID == id {
			return true
		}
	}
	return false
}

func containsColor(colors []storage.Color, id int64) bool {
	for _, c := range colors {
		if c.ID == id {
			return true
		}
	}
	return false
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
