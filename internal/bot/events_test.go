package bot

import "testing"

func TestSelectionPayloadRoundTrip(t *testing.T) {
	payload := selectionData(ActionSelectBrand, 2)

	sel, err := ParseSelection(42, Profile{Username: "customer"}, payload)
	if err != nil {
		t.Fatalf("ParseSelection failed: %v", err)
	}
	if sel.Action != ActionSelectBrand {
		t.Errorf("action = %q, want %q", sel.Action, ActionSelectBrand)
	}
	if sel.ID != 2 {
		t.Errorf("id = %d, want 2", sel.ID)
	}
	if sel.ChatID != 42 {
		t.Errorf("chat id = %d, want 42", sel.ChatID)
	}
}

func TestPaymentPayloadRoundTrip(t *testing.T) {
	payload := paymentData("cash")

	sel, err := ParseSelection(42, Profile{}, payload)
	if err != nil {
		t.Fatalf("ParseSelection failed: %v", err)
	}
	if sel.Action != ActionSelectPayment {
		t.Errorf("action = %q, want %q", sel.Action, ActionSelectPayment)
	}
	if sel.Method != "cash" {
		t.Errorf("method = %q, want cash", sel.Method)
	}
}

func TestParseSelectionRejectsGarbage(t *testing.T) {
	for _, payload := range []string{"", "not json", `{"id":5}`} {
		if _, err := ParseSelection(42, Profile{}, payload); err == nil {
			t.Errorf("ParseSelection(%q) succeeded, want error", payload)
		}
	}
}
