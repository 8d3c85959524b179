package bot

// Conversation states. The flow is strictly linear: a user walks from the
// brand menu to payment selection one step at a time, and any /start resets
// the walk from the beginning.
const (
	StateStart            = "start"
	StateSelectingShoe    = "selecting_shoe"
	StateSelectingSize    = "selecting_size"
	StateSelectingColor   = "selecting_color"
	StateWaitingAddress   = "waiting_address"
	StateWaitingEntrance  = "waiting_entrance"
	StateWaitingApartment = "waiting_apartment"
	StateSelectingPayment = "selecting_payment"
)

// Menu selection actions carried in callback payloads.
const (
	ActionSelectBrand   = "select_brand"
	ActionSelectShoe    = "select_shoe"
	ActionSelectSize    = "select_size"
	ActionSelectColor   = "select_color"
	ActionSelectPayment = "select_payment"
)
