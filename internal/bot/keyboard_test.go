package bot

import (
	"testing"

	"shoeshop-bot/internal/storage"
)

func TestSizeMenuThreePerRow(t *testing.T) {
	sizes := []storage.Size{
		{ID: 1, Value: "37"}, {ID: 2, Value: "38"}, {ID: 3, Value: "39"},
		{ID: 4, Value: "40"}, {ID: 5, Value: "41"}, {ID: 6, Value: "42"},
		{ID: 7, Value: "43"},
	}

	menu := sizeMenu(sizes)

	wantRows := []int{3, 3, 1}
	if len(menu) != len(wantRows) {
		t.Fatalf("rows = %d, want %d", len(menu), len(wantRows))
	}
	for i, want := range wantRows {
		if len(menu[i]) != want {
			t.Errorf("row %d has %d buttons, want %d", i, len(menu[i]), want)
		}
	}
}

func TestShoeMenuIncludesPrice(t *testing.T) {
	menu := shoeMenu([]storage.Shoe{{ID: 5, Name: "Asics GT-2000", Price: 9990}})

	if len(menu) != 1 || len(menu[0]) != 1 {
		t.Fatalf("unexpected menu shape: %v", menu)
	}
	if got, want := menu[0][0].Label, "Asics GT-2000 - 9990 руб."; got != want {
		t.Errorf("label = %q, want %q", got, want)
	}
}

func TestPaymentMenuOffersBothMethods(t *testing.T) {
	menu := paymentMenu()

	if len(menu) != 2 {
		t.Fatalf("rows = %d, want 2", len(menu))
	}
	for _, row := range menu {
		sel, err := ParseSelection(1, Profile{}, row[0].Data)
		if err != nil {
			t.Fatalf("payment button payload invalid: %v", err)
		}
		if sel.Method != storage.PaymentCard && sel.Method != storage.PaymentCash {
			t.Errorf("unexpected payment method %q", sel.Method)
		}
	}
}
