package bot

import (
	"encoding/json"
	"fmt"
)

// Profile is display metadata of the end user, informational only.
type Profile struct {
	Username  string
	FirstName string
	LastName  string
}

// TextMessage is an inbound free-text event.
type TextMessage struct {
	ChatID  int64
	Profile Profile
	Text    string
}

// MenuSelection is an inbound menu-choice event. Either ID or Method is set
// depending on the action.
type MenuSelection struct {
	ChatID  int64
	Profile Profile
	Action  string
	ID      int64
	Method  string
}

// callbackData is the JSON shape round-tripped through inline keyboard
// buttons: {"action":"select_brand","id":2} or
// {"action":"select_payment","method":"cash"}.
type callbackData struct {
	Action string `json:"action"`
	ID     int64  `json:"id,omitempty"`
	Method string `json:"method,omitempty"`
}

func selectionData(action string, id int64) string {
	data, _ := json.Marshal(callbackData{Action: action, ID: id})
	return string(data)
}

func paymentData(method string) string {
	data, _ := json.Marshal(callbackData{Action: ActionSelectPayment, Method: method})
	return string(data)
}

// ParseSelection decodes an inbound callback payload into a MenuSelection.
func ParseSelection(chatID int64, profile Profile, payload string) (MenuSelection, error) {
	var data callbackData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return MenuSelection{}, fmt.Errorf("parse callback payload: %w", err)
	}
	if data.Action == "" {
		return MenuSelection{}, fmt.Errorf("callback payload has no action")
	}
	return MenuSelection{
		ChatID:  chatID,
		Profile: profile,
		Action:  data.Action,
		ID:      data.ID,
		Method:  data.Method,
	}, nil
}
