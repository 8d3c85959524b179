package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"shoeshop-bot/internal/storage"

	"go.uber.org/zap"
)

// --- Fakes ---

type fakeCatalog struct {
	brands     []storage.Brand
	shoes      []storage.Shoe
	sizes      []storage.Size
	colors     []storage.Color
	shoeSizes  map[int64][]int64
	shoeColors map[int64][]int64
}

func (f *fakeCatalog) Brands(ctx context.Context) ([]storage.Brand, error) {
	return f.brands, nil
}

func (f *fakeCatalog) BrandByID(ctx context.Context, brandID int64) (*storage.Brand, error) {
	for _, b := range f.brands {
		if b.ID == brandID {
			return &b, nil
		}
	}
	return nil, fmt.Errorf("brand %d: %w", brandID, storage.ErrNotFound)
}

func (f *fakeCatalog) ShoesOfBrand(ctx context.Context, brandID int64) ([]storage.Shoe, error) {
	var shoes []storage.Shoe
	for _, s := range f.shoes {
		if s.BrandID == brandID {
			shoes = append(shoes, s)
		}
	}
	return shoes, nil
}

func (f *fakeCatalog) ShoeByID(ctx context.Context, shoeID int64) (*storage.Shoe, error) {
	for _, s := range f.shoes {
		if s.ID == shoeID {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("shoe %d: %w", shoeID, storage.ErrNotFound)
}

func (f *fakeCatalog) SizeByID(ctx context.Context, sizeID int64) (*storage.Size, error) {
	for _, s := range f.sizes {
		if s.ID == sizeID {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("size %d: %w", sizeID, storage.ErrNotFound)
}

func (f *fakeCatalog) ColorByID(ctx context.Context, colorID int64) (*storage.Color, error) {
	for _, c := range f.colors {
		if c.ID == colorID {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("color %d: %w", colorID, storage.ErrNotFound)
}

func (f *fakeCatalog) SizesOfShoe(ctx context.Context, shoeID int64) ([]storage.Size, error) {
	var sizes []storage.Size
	for _, id := range f.shoeSizes[shoeID] {
		for _, s := range f.sizes {
			if s.ID == id {
				sizes = append(sizes, s)
			}
		}
	}
	return sizes, nil
}

func (f *fakeCatalog) ColorsOfShoe(ctx context.Context, shoeID int64) ([]storage.Color, error) {
	var colors []storage.Color
	for _, id := range f.shoeColors[shoeID] {
		for _, c := range f.colors {
			if c.ID == id {
				colors = append(colors, c)
			}
		}
	}
	return colors, nil
}

type fakeUsers struct {
	users map[int64]*storage.TelegramUser
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[int64]*storage.TelegramUser)}
}

func (f *fakeUsers) GetOrCreateUser(ctx context.Context, chatID int64, username, firstName, lastName string) (*storage.TelegramUser, error) {
	if u, ok := f.users[chatID]; ok {
		cp := *u
		return &cp, nil
	}
	u := storage.TelegramUser{
		ChatID:       chatID,
		CurrentState: StateStart,
	}
	u.Username.String, u.Username.Valid = username, username != ""
	f.users[chatID] = &u
	cp := u
	return &cp, nil
}

func (f *fakeUsers) SaveUser(ctx context.Context, user *storage.TelegramUser) error {
	cp := *user
	f.users[user.ChatID] = &cp
	return nil
}

func (f *fakeUsers) state(chatID int64) *storage.TelegramUser {
	return f.users[chatID]
}

type fakeOrders struct {
	users   *fakeUsers
	orders  []storage.Order
	failErr error
	nextID  int64
}

func (f *fakeOrders) CreateOrderAndReset(ctx context.Context, order storage.Order) (*storage.Order, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	f.nextID++
	order.ID = f.nextID
	f.orders = append(f.orders, order)

	// Same transaction as the insert: reset the conversation.
	if u, ok := f.users.users[order.ChatID]; ok {
		u.CurrentState = StateStart
		u.Draft = storage.Draft{}
	}
	return &order, nil
}

type sentMessage struct {
	ChatID int64
	Text   string
	Photo  string
	Menu   Menu
}

type fakeGateway struct {
	sent     []sentMessage
	failText bool
}

func (f *fakeGateway) SendText(ctx context.Context, chatID int64, text string, menu Menu) error {
	if f.failText {
		return errors.New("telegram unavailable")
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text, Menu: menu})
	return nil
}

func (f *fakeGateway) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, menu Menu) error {
	if f.failText {
		return errors.New("telegram unavailable")
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: caption, Photo: photoURL, Menu: menu})
	return nil
}

func (f *fakeGateway) last() sentMessage {
	if len(f.sent) == 0 {
		return sentMessage{}
	}
	return f.sent[len(f.sent)-1]
}

// --- Fixture ---

// seedCatalog mirrors the seed data shape: four brands, one of them with
// models; model 5 is orderable in sizes 1-3 and colors 1-2 only.
func seedCatalog() *fakeCatalog {
	return &fakeCatalog{
		brands: []storage.Brand{
			{ID: 1, Name: "Adidas", Image: "brands/adidas.png"},
			{ID: 2, Name: "Asics", Image: "brands/asics.png"},
			{ID: 3, Name: "Nike"},
			{ID: 4, Name: "Puma"},
		},
		shoes: []storage.Shoe{
			{ID: 5, BrandID: 2, Name: "Asics GT-2000", Description: "Кроссовки для тренировок", Image: "shoes/asics-gt-2000.jpg", Price: 9990},
			{ID: 6, BrandID: 2, Name: "Asics Nimbus 25", Price: 12990},
			{ID: 7, BrandID: 1, Name: "Adidas Ultraboost", Price: 15990},
		},
		sizes: []storage.Size{
			{ID: 1, Value: "40"},
			{ID: 2, Value: "41"},
			{ID: 3, Value: "42"},
			{ID: 4, Value: "43"},
		},
		colors: []storage.Color{
			{ID: 1, Name: "Черный"},
			{ID: 2, Name: "Белый"},
			{ID: 3, Name: "Синий"},
		},
		shoeSizes: map[int64][]int64{
			5: {1, 2, 3},
			6: {3, 4},
			7: {1, 2, 3, 4},
		},
		shoeColors: map[int64][]int64{
			5: {1, 2},
			6: {2, 3},
			7: {1, 3},
		},
	}
}

type testEnv struct {
	engine  *Engine
	users   *fakeUsers
	orders  *fakeOrders
	gateway *fakeGateway
}

func newTestEnv() *testEnv {
	users := newFakeUsers()
	orders := &fakeOrders{users: users}
	gateway := &fakeGateway{}
	engine := NewEngine(
		seedCatalog(),
		users,
		orders,
		gateway,
		NewImageResolver("http://localhost:8000"),
		nil,
		zap.NewNop(),
	)
	return &testEnv{engine: engine, users: users, orders: orders, gateway: gateway}
}

const testChatID = int64(100)

func (env *testEnv) text(t *testing.T, text string) error {
	t.Helper()
	return env.engine.HandleText(context.Background(), TextMessage{
		ChatID:  testChatID,
		Profile: Profile{Username: "customer"},
		Text:    text,
	})
}

func (env *testEnv) selectID(t *testing.T, action string, id int64) error {
	t.Helper()
	return env.engine.HandleSelection(context.Background(), MenuSelection{
		ChatID: testChatID,
		Action: action,
		ID:     id,
	})
}

func (env *testEnv) selectPayment(t *testing.T, method string) error {
	t.Helper()
	return env.engine.HandleSelection(context.Background(), MenuSelection{
		ChatID: testChatID,
		Action: ActionSelectPayment,
		Method: method,
	})
}

// advanceTo walks the happy path up to (not including) the named state.
func (env *testEnv) advanceTo(t *testing.T, state string) {
	t.Helper()
	steps := []struct {
		state string
		run   func() error
	}{
		{StateSelectingShoe, func() error { return env.text(t, "/start") }},
		{StateSelectingSize, func() error {
			if err := env.selectID(t, ActionSelectBrand, 2); err != nil {
				return err
			}
			return env.selectID(t, ActionSelectShoe, 5)
		}},
		{StateSelectingColor, func() error { return env.selectID(t, ActionSelectSize, 3) }},
		{StateWaitingAddress, func() error { return env.selectID(t, ActionSelectColor, 1) }},
		{StateWaitingEntrance, func() error { return env.text(t, "Main St 1") }},
		{StateWaitingApartment, func() error { return env.text(t, "4") }},
		{StateSelectingPayment, func() error { return env.text(t, "12") }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			t.Fatalf("advance to %s: step failed: %v", state, err)
		}
		if step.state == state {
			return
		}
	}
	t.Fatalf("unknown state %q", state)
}

// --- Tests ---

func TestFullOrderScenario(t *testing.T) {
	env := newTestEnv()

	if err := env.text(t, "/start"); err != nil {
		t.Fatalf("/start failed: %v", err)
	}
	if got := len(env.gateway.last().Menu); got != 4 {
		t.Errorf("brand menu rows = %d, want 4", got)
	}

	if err := env.selectID(t, ActionSelectBrand, 2); err != nil {
		t.Fatalf("brand selection failed: %v", err)
	}
	if got := len(env.gateway.last().Menu); got != 2 {
		t.Errorf("model menu rows = %d, want 2 models of brand 2", got)
	}

	if err := env.selectID(t, ActionSelectShoe, 5); err != nil {
		t.Fatalf("shoe selection failed: %v", err)
	}
	sizeRows := env.gateway.last().Menu
	var sizeButtons int
	for _, row := range sizeRows {
		sizeButtons += len(row)
	}
	if sizeButtons != 3 {
		t.Errorf("size menu buttons = %d, want the 3 sizes of model 5", sizeButtons)
	}

	if err := env.selectID(t, ActionSelectSize, 3); err != nil {
		t.Fatalf("size selection failed: %v", err)
	}
	colorRows := env.gateway.last().Menu
	if len(colorRows) != 2 {
		t.Errorf("color menu rows = %d, want the 2 colors of model 5", len(colorRows))
	}

	if err := env.selectID(t, ActionSelectColor, 1); err != nil {
		t.Fatalf("color selection failed: %v", err)
	}
	for _, input := range []string{"Main St 1", "4", "12"} {
		if err := env.text(t, input); err != nil {
			t.Fatalf("text input %q failed: %v", input, err)
		}
	}
	if got := env.users.state(testChatID).CurrentState; got != StateSelectingPayment {
		t.Fatalf("state after apartment = %s, want %s", got, StateSelectingPayment)
	}

	if err := env.selectPayment(t, "cash"); err != nil {
		t.Fatalf("payment selection failed: %v", err)
	}

	if len(env.orders.orders) != 1 {
		t.Fatalf("orders created = %d, want 1", len(env.orders.orders))
	}
	order := env.orders.orders[0]
	if order.ShoeID != 5 || order.ColorID != 1 || order.SizeID != 3 {
		t.Errorf("order catalog refs = (%d, %d, %d), want (5, 1, 3)",
			order.ShoeID, order.ColorID, order.SizeID)
	}
	if order.Address != "Main St 1" || order.Entrance.String != "4" || order.Apartment.String != "12" {
		t.Errorf("order address = (%q, %q, %q), want (Main St 1, 4, 12)",
			order.Address, order.Entrance.String, order.Apartment.String)
	}
	if order.PaymentMethod != storage.PaymentCash {
		t.Errorf("payment method = %q, want cash", order.PaymentMethod)
	}
	if order.Status != storage.StatusPending {
		t.Errorf("status = %q, want pending", order.Status)
	}

	// The conversation starts over: empty draft, brand menu presented again.
	final := env.users.state(testChatID)
	if final.Draft != (storage.Draft{}) {
		t.Errorf("draft not cleared after order: %+v", final.Draft)
	}
	if final.CurrentState != StateSelectingShoe {
		t.Errorf("state after order = %s, want %s", final.CurrentState, StateSelectingShoe)
	}
	if got := len(env.gateway.last().Menu); got != 4 {
		t.Errorf("menu after order has %d rows, want the brand menu again", got)
	}
}

func TestUnexpectedEventLeavesStateUntouched(t *testing.T) {
	env := newTestEnv()
	env.advanceTo(t, StateSelectingSize)
	before := *env.users.state(testChatID)

	tests := []struct {
		name string
		run  func() error
	}{
		{"free text while selecting size", func() error { return env.text(t, "42") }},
		{"color choice while selecting size", func() error { return env.selectID(t, ActionSelectColor, 1) }},
		{"payment choice while selecting size", func() error { return env.selectPayment(t, "cash") }},
		{"unknown action", func() error {
			return env.engine.HandleSelection(context.Background(), MenuSelection{
				ChatID: testChatID, Action: "select_warehouse", ID: 1,
			})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, ErrUnexpectedEvent) {
				t.Fatalf("err = %v, want ErrUnexpectedEvent", err)
			}
			after := env.users.state(testChatID)
			if after.CurrentState != before.CurrentState {
				t.Errorf("state changed: %s -> %s", before.CurrentState, after.CurrentState)
			}
			if after.Draft != before.Draft {
				t.Errorf("draft changed: %+v -> %+v", before.Draft, after.Draft)
			}
		})
	}
}

func TestSizeOutsideModelAssociation(t *testing.T) {
	env := newTestEnv()
	env.advanceTo(t, StateSelectingSize)

	// Size 4 exists but model 5 is not orderable in it.
	err := env.selectID(t, ActionSelectSize, 4)
	if !errors.Is(err, ErrInvalidAssociation) {
		t.Fatalf("err = %v, want ErrInvalidAssociation", err)
	}

	state := env.users.state(testChatID)
	if state.CurrentState != StateSelectingSize {
		t.Errorf("state = %s, want %s", state.CurrentState, StateSelectingSize)
	}
	if state.Draft.SizeID != nil {
		t.Errorf("size recorded despite invalid association: %d", *state.Draft.SizeID)
	}

	// The same step can be retried with a valid size.
	if err := env.selectID(t, ActionSelectSize, 3); err != nil {
		t.Fatalf("retry with valid size failed: %v", err)
	}
}

func TestColorOutsideModelAssociation(t *testing.T) {
	env := newTestEnv()
	env.advanceTo(t, StateSelectingColor)

	err := env.selectID(t, ActionSelectColor, 3)
	if !errors.Is(err, ErrInvalidAssociation) {
		t.Fatalf("err = %v, want ErrInvalidAssociation", err)
	}
	if state := env.users.state(testChatID); state.Draft.ColorID != nil {
		t.Errorf("color recorded despite invalid association: %d", *state.Draft.ColorID)
	}
}

func TestUnknownCatalogID(t *testing.T) {
	env := newTestEnv()
	env.advanceTo(t, StateSelectingShoe)

	err := env.selectID(t, ActionSelectBrand, 999)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want storage.ErrNotFound", err)
	}
	state := env.users.state(testChatID)
	if state.Draft.BrandID != nil {
		t.Errorf("brand recorded despite lookup failure: %d", *state.Draft.BrandID)
	}
}

func TestUnknownPaymentMethod(t *testing.T) {
	env := newTestEnv()
	env.advanceTo(t, StateSelectingPayment)

	err := env.selectPayment(t, "crypto")
	if !errors.Is(err, ErrUnexpectedEvent) {
		t.Fatalf("err = %v, want ErrUnexpectedEvent", err)
	}
	if got := env.users.state(testChatID).CurrentState; got != StateSelectingPayment {
		t.Errorf("state = %s, want %s", got, StateSelectingPayment)
	}
	if len(env.orders.orders) != 0 {
		t.Errorf("order created for unknown payment method")
	}
}

func TestOrderPersistenceFailureKeepsDraft(t *testing.T) {
	env := newTestEnv()
	env.advanceTo(t, StateSelectingPayment)
	env.orders.failErr = errors.New("connection reset")

	err := env.selectPayment(t, "card")
	if err == nil {
		t.Fatal("expected error when order persistence fails")
	}

	state := env.users.state(testChatID)
	if state.CurrentState != StateSelectingPayment {
		t.Errorf("state advanced despite failed order: %s", state.CurrentState)
	}
	if state.Draft.ShoeID == nil || state.Draft.Address == nil {
		t.Error("draft cleared despite failed order")
	}

	// A retry after the store recovers succeeds.
	env.orders.failErr = nil
	if err := env.selectPayment(t, "card"); err != nil {
		t.Fatalf("retry after recovery failed: %v", err)
	}
	if len(env.orders.orders) != 1 {
		t.Fatalf("orders created = %d, want 1", len(env.orders.orders))
	}
}

func TestSendFailureDoesNotRollBackOrder(t *testing.T) {
	env := newTestEnv()
	env.advanceTo(t, StateSelectingPayment)
	env.gateway.failText = true

	err := env.selectPayment(t, "cash")
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("err = %v, want ErrSendFailed", err)
	}

	if len(env.orders.orders) != 1 {
		t.Fatalf("orders created = %d, want 1 despite delivery failure", len(env.orders.orders))
	}
	if got := env.users.state(testChatID).Draft; got != (storage.Draft{}) {
		t.Errorf("draft not cleared despite committed order: %+v", got)
	}
}

func TestRestartClearsDraftFromAnyState(t *testing.T) {
	env := newTestEnv()
	env.advanceTo(t, StateWaitingEntrance)

	if err := env.text(t, "/start"); err != nil {
		t.Fatalf("/start failed: %v", err)
	}

	state := env.users.state(testChatID)
	if state.CurrentState != StateSelectingShoe {
		t.Errorf("state = %s, want %s", state.CurrentState, StateSelectingShoe)
	}
	if state.Draft != (storage.Draft{}) {
		t.Errorf("draft not cleared on restart: %+v", state.Draft)
	}
}

func TestDraftAccumulatesInStateOrder(t *testing.T) {
	env := newTestEnv()
	env.advanceTo(t, StateWaitingApartment)

	draft := env.users.state(testChatID).Draft
	if draft.BrandID == nil || *draft.BrandID != 2 {
		t.Error("brand missing from draft")
	}
	if draft.ShoeID == nil || *draft.ShoeID != 5 {
		t.Error("shoe missing from draft")
	}
	if draft.SizeID == nil || *draft.SizeID != 3 {
		t.Error("size missing from draft")
	}
	if draft.ColorID == nil || *draft.ColorID != 1 {
		t.Error("color missing from draft")
	}
	if draft.Address == nil || *draft.Address != "Main St 1" {
		t.Error("address missing from draft")
	}
	if draft.Entrance == nil || *draft.Entrance != "4" {
		t.Error("entrance missing from draft")
	}
	if draft.Apartment != nil {
		t.Error("apartment recorded before its state was passed")
	}
}

func TestEventInInitialStatePresentsBrandMenu(t *testing.T) {
	env := newTestEnv()

	// A menu tap from a user who never started still opens the conversation.
	if err := env.selectID(t, ActionSelectBrand, 1); err != nil {
		t.Fatalf("selection in initial state failed: %v", err)
	}
	if got := len(env.gateway.last().Menu); got != 4 {
		t.Errorf("menu rows = %d, want the full brand menu", got)
	}
	if got := env.users.state(testChatID).CurrentState; got != StateSelectingShoe {
		t.Errorf("state = %s, want %s", got, StateSelectingShoe)
	}
}
