package market

import (
	"fmt"

	"github.com/davidahmann/courseledger/pkg/types"
)

type WalletStatus int

const (
	WalletNotConnected WalletStatus = iota
	WalletConnected
)

// DisplayState is what a buyer sees for a catalog course. The set is
// closed; every switch over it must handle all five values.
type DisplayState string

const (
	DisplayNotConnected DisplayState = "not_connected"
	DisplayNotOwned     DisplayState = "not_owned"
	DisplayPurchased    DisplayState = "purchased"
	DisplayActivated    DisplayState = "activated"
	DisplayDeactivated  DisplayState = "deactivated"
)

type Affordance string

const (
	AffordConnectWallet  Affordance = "connect_wallet"
	AffordPurchase       Affordance = "purchase"
	AffordOwned          Affordance = "owned"
	AffordFundToActivate Affordance = "fund_to_activate"
)

// DeriveState maps the wallet status and the buyer's ledger record (nil or
// zero-owner when not purchased) to a display state.
func DeriveState(wallet WalletStatus, record *types.LedgerRecord) (DisplayState, error) {
	if wallet != WalletConnected {
		return DisplayNotConnected, nil
	}
	if record == nil || !record.Exists() {
		return DisplayNotOwned, nil
	}
	switch record.State {
	case types.StatePurchased:
		return DisplayPurchased, nil
	case types.StateActivated:
		return DisplayActivated, nil
	case types.StateDeactivated:
		return DisplayDeactivated, nil
	default:
		return "", fmt.Errorf("%w: ledger state %q", ErrUnknownState, record.State)
	}
}

// BuyerAffordances lists what the buyer can do from state.
func BuyerAffordances(state DisplayState) ([]Affordance, error) {
	switch state {
	case DisplayNotConnected:
		return []Affordance{AffordConnectWallet}, nil
	case DisplayNotOwned:
		return []Affordance{AffordPurchase}, nil
	case DisplayPurchased, DisplayActivated:
		return []Affordance{AffordOwned}, nil
	case DisplayDeactivated:
		return []Affordance{AffordOwned, AffordFundToActivate}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, state)
	}
}

// PurchaseEnabled reports whether the purchase control is live in state.
func PurchaseEnabled(state DisplayState) (bool, error) {
	switch state {
	case DisplayNotOwned:
		return true, nil
	case DisplayNotConnected, DisplayPurchased, DisplayActivated, DisplayDeactivated:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownState, state)
	}
}

// AdminActions lists the transitions an admin may request for a record in
// state. Nothing leads back to purchased.
func AdminActions(state types.CourseState) ([]Action, error) {
	switch state {
	case types.StatePurchased:
		return []Action{ActionActivate, ActionDeactivate}, nil
	case types.StateActivated:
		return []Action{ActionDeactivate}, nil
	case types.StateDeactivated:
		return []Action{ActionActivate}, nil
	default:
		return nil, fmt.Errorf("%w: ledger state %q", ErrUnknownState, state)
	}
}
