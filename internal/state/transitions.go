package state

import (
	"errors"
	"fmt"

	"github.com/Proton-105/bazaar-bot/internal/channel"
	"github.com/Proton-105/bazaar-bot/internal/validate"
)

var (
	// ErrInvalidTransition indicates that a requested transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrIncompleteContext indicates that state and context no longer describe a prefix of the flow.
	ErrIncompleteContext = errors.New("conversation context does not match state")
)

// validTransitions contains the forward edges of the flow. Staying in place and
// restarting at language selection are always allowed.
var validTransitions = map[State][]State{
	StateLanguageSelection:   {StateShowingProduct},
	StateShowingProduct:      {StateAskingQuantity, StateWaitingForAgent},
	StateAskingQuantity:      {StateAskingName},
	StateAskingName:          {StateAskingPhone},
	StateAskingPhone:         {StateAskingAddress},
	StateAskingAddress:       {StateAskingPaymentMethod},
	StateAskingPaymentMethod: {StateWaitingPaymentProof, StateShowingProduct},
	StateWaitingPaymentProof: {StateShowingProduct},
	StateWaitingForAgent:     {StateShowingProduct},
}

// acceptedModalities lists the inputs each state reacts to; voice is transcribed to text before this check.
var acceptedModalities = map[State][]channel.Modality{
	StateLanguageSelection:   {channel.ModalityButton},
	StateShowingProduct:      {channel.ModalityButton},
	StateAskingQuantity:      {channel.ModalityList, channel.ModalityText},
	StateAskingName:          {channel.ModalityText},
	StateAskingPhone:         {channel.ModalityText},
	StateAskingAddress:       {channel.ModalityText},
	StateAskingPaymentMethod: {channel.ModalityButton},
	StateWaitingPaymentProof: {channel.ModalityImage, channel.ModalityText},
	StateWaitingForAgent:     {channel.ModalityText},
}

// stages orders states along the canonical flow; the agent branch sits beside product browsing.
var stages = map[State]int{
	StateLanguageSelection:   0,
	StateShowingProduct:      1,
	StateWaitingForAgent:     1,
	StateAskingQuantity:      2,
	StateAskingName:          3,
	StateAskingPhone:         4,
	StateAskingAddress:       5,
	StateAskingPaymentMethod: 6,
	StateWaitingPaymentProof: 7,
}

// contextFields pairs each context field with the first stage that may hold it:
// the stage entered once the field is accepted. payment_method is the exception,
// since cash on delivery records it while still in ASKING_PAYMENT_METHOD.
var contextFields = []struct {
	name  string
	stage int
	set   func(Context) bool
}{
	{"product_sku", stages[StateShowingProduct], func(c Context) bool { return c.ProductSKU != "" }},
	{"qty", stages[StateAskingName], func(c Context) bool { return c.Qty != 0 }},
	{"name", stages[StateAskingPhone], func(c Context) bool { return c.Name != "" }},
	{"phone", stages[StateAskingAddress], func(c Context) bool { return c.Phone != "" }},
	{"address", stages[StateAskingPaymentMethod], func(c Context) bool { return c.Address != "" }},
	{"payment_method", stages[StateAskingPaymentMethod], func(c Context) bool { return c.PaymentMethod != "" }},
}

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if !to.Valid() {
		return false
	}
	if from == to || to == StateLanguageSelection {
		return true
	}

	for _, state := range validTransitions[from] {
		if state == to {
			return true
		}
	}

	return false
}

// Accepts reports whether state s handles input of the given modality.
func Accepts(s State, modality channel.Modality) bool {
	for _, m := range acceptedModalities[s] {
		if m == modality {
			return true
		}
	}
	return false
}

// IsOrderInProgress reports whether s lies between quantity and payment proof.
func IsOrderInProgress(s State) bool {
	stage, ok := stages[s]
	return ok && stage >= stages[StateAskingQuantity]
}

// FieldKind returns the field a state is asking for.
func FieldKind(s State) (validate.Kind, bool) {
	switch s {
	case StateAskingQuantity:
		return validate.KindQuantity, true
	case StateAskingName:
		return validate.KindName, true
	case StateAskingPhone:
		return validate.KindPhone, true
	case StateAskingAddress:
		return validate.KindAddress, true
	default:
		return "", false
	}
}

// CheckContext verifies that ctx is a prefix of the flow for state s: a field is
// set only once its step has been reached and is always set once the flow is past it.
func CheckContext(s State, ctx Context) error {
	stage, ok := stages[s]
	if !ok {
		return fmt.Errorf("%w: unknown state %q", ErrIncompleteContext, s)
	}

	for _, field := range contextFields {
		set := field.set(ctx)
		switch {
		case set && stage < field.stage:
			return fmt.Errorf("%w: %s set in %s", ErrIncompleteContext, field.name, s)
		case !set && stage > field.stage:
			return fmt.Errorf("%w: %s missing in %s", ErrIncompleteContext, field.name, s)
		}
	}

	return nil
}

// ReadyForOrder verifies that every field an order needs is present.
func ReadyForOrder(ctx Context) error {
	for _, field := range contextFields {
		if !field.set(ctx) {
			return fmt.Errorf("%w: %s missing", ErrIncompleteContext, field.name)
		}
	}
	return nil
}
