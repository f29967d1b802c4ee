// Package nut07 models proof states and the legal transitions
// between them. See https://github.com/cashubtc/nuts/blob/main/07.md
package nut07

import (
	"encoding/json"
	"errors"
	"fmt"
)

type State int

const (
	Unspent State = iota
	Pending
	Spent
	Unknown
)

var ErrInvalidStateTransition = errors.New("invalid proof state transition")

func (state State) String() string {
	switch state {
	case Unspent:
		return "UNSPENT"
	case Pending:
		return "PENDING"
	case Spent:
		return "SPENT"
	default:
		return "unknown"
	}
}

func StringToState(state string) State {
	switch state {
	case "UNSPENT":
		return Unspent
	case "PENDING":
		return Pending
	case "SPENT":
		return Spent
	}
	return Unknown
}

// CanTransition reports whether moving a proof from one state to
// another is legal. Unknown is only the pre-observation default: any
// state may be observed from Unknown, but nothing transitions back
// into it. Spent is terminal. Pending may roll back to Unspent when a
// payment attempt fails.
func CanTransition(from, to State) bool {
	if to == Unknown {
		return false
	}
	switch from {
	case Unknown:
		return true
	case Unspent:
		return to == Pending || to == Spent
	case Pending:
		return to == Spent || to == Unspent
	case Spent:
		return false
	}
	return false
}

// Transition validates the requested state change and returns the new
// state, or ErrInvalidStateTransition with both states named.
func Transition(from, to State) (State, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %v -> %v", ErrInvalidStateTransition, from, to)
	}
	return to, nil
}

type PostCheckStateRequest struct {
	Ys []string `json:"Ys"`
}

type PostCheckStateResponse struct {
	States []ProofState `json:"states"`
}

type ProofState struct {
	Y       string `json:"Y"`
	State   State  `json:"state"`
	Witness string `json:"witness"`
}

func (state ProofState) MarshalJSON() ([]byte, error) {
	proofString := struct {
		Y       string `json:"Y"`
		State   string `json:"state"`
		Witness string `json:"witness"`
	}{
		Y:       state.Y,
		State:   state.State.String(),
		Witness: state.Witness,
	}
	return json.Marshal(proofString)
}

func (state *ProofState) UnmarshalJSON(data []byte) error {
	var proofString struct {
		Y       string `json:"Y"`
		State   string `json:"state"`
		Witness string `json:"witness"`
	}

	if err := json.Unmarshal(data, &proofString); err != nil {
		return err
	}

	state.Y = proofString.Y
	stateVal := StringToState(proofString.State)
	if stateVal == Unknown {
		return errors.New("invalid state")
	}
	state.State = stateVal
	state.Witness = proofString.Witness

	return nil
}
