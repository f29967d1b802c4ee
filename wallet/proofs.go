package wallet

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/SparrowTek/CoreCashu-sub005/cashu"
	"github.com/SparrowTek/CoreCashu-sub005/cashu/nuts/nut07"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicateProof      = errors.New("proof with this secret already tracked")
	ErrProofNotFound       = errors.New("proof not tracked")
)

// selectionSearchBudget caps the number of subsets the selection
// search visits before settling for the best candidate found.
const selectionSearchBudget = 1 << 16

type trackedProof struct {
	proof cashu.Proof
	state nut07.State
}

// ProofPool tracks the proofs a wallet holds and their lifecycle
// state. Proofs are identified by their secret. All operations are
// atomic with respect to each other; a reservation either marks every
// selected proof pending or none.
type ProofPool struct {
	mu     sync.Mutex
	proofs map[string]*trackedProof
}

func NewProofPool() *ProofPool {
	return &ProofPool{proofs: make(map[string]*trackedProof)}
}

// Add starts tracking a proof in the unspent state.
func (pp *ProofPool) Add(proofs ...cashu.Proof) error {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	for _, proof := range proofs {
		if _, ok := pp.proofs[proof.Secret]; ok {
			return ErrDuplicateProof
		}
	}
	for _, proof := range proofs {
		pp.proofs[proof.Secret] = &trackedProof{proof: proof, state: nut07.Unspent}
	}
	return nil
}

// State returns the lifecycle state of the proof with the given
// secret. Untracked proofs are in the unknown state.
func (pp *ProofPool) State(secret string) nut07.State {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	tracked, ok := pp.proofs[secret]
	if !ok {
		return nut07.Unknown
	}
	return tracked.state
}

// Transition moves a tracked proof to a new state, enforcing the
// legal transitions. A spent proof stays spent.
func (pp *ProofPool) Transition(secret string, to nut07.State) error {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	return pp.transition(secret, to)
}

func (pp *ProofPool) transition(secret string, to nut07.State) error {
	tracked, ok := pp.proofs[secret]
	if !ok {
		return ErrProofNotFound
	}
	newState, err := nut07.Transition(tracked.state, to)
	if err != nil {
		return err
	}
	tracked.state = newState
	return nil
}

// Balance returns the total amount of unspent proofs.
func (pp *ProofPool) Balance() uint64 {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	var balance uint64
	for _, tracked := range pp.proofs {
		if tracked.state == nut07.Unspent {
			balance += tracked.proof.Amount
		}
	}
	return balance
}

// Spendable returns a snapshot of the unspent proofs.
func (pp *ProofPool) Spendable() cashu.Proofs {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	return pp.spendable()
}

func (pp *ProofPool) spendable() cashu.Proofs {
	proofs := cashu.Proofs{}
	for _, tracked := range pp.proofs {
		if tracked.state == nut07.Unspent {
			proofs = append(proofs, tracked.proof)
		}
	}
	return proofs
}

// Reserve selects unspent proofs covering the target amount and marks
// them pending in the same step, so concurrent reservations never
// hand out the same proof twice.
func (pp *ProofPool) Reserve(target uint64) (cashu.Proofs, error) {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	selected, err := SelectProofs(pp.spendable(), target)
	if err != nil {
		return nil, err
	}
	for _, proof := range selected {
		if err := pp.transition(proof.Secret, nut07.Pending); err != nil {
			return nil, fmt.Errorf("reserving proof: %v", err)
		}
	}
	return selected, nil
}

// Release rolls a pending reservation back, returning the proofs to
// the spendable pool.
func (pp *ProofPool) Release(proofs cashu.Proofs) error {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	for _, proof := range proofs {
		if err := pp.transition(proof.Secret, nut07.Unspent); err != nil {
			return err
		}
	}
	return nil
}

// Spend marks the proofs spent.
func (pp *ProofPool) Spend(proofs cashu.Proofs) error {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	for _, proof := range proofs {
		if err := pp.transition(proof.Secret, nut07.Spent); err != nil {
			return err
		}
	}
	return nil
}

// SelectProofs picks proofs whose amounts cover the target. An exact
// match wins over any overshoot; among overshoots the smaller sum
// wins; ties go to the selection with fewer proofs. The search is
// bounded, falling back to the best candidate seen when the bound is
// hit, so selection stays cheap on large pools.
func SelectProofs(proofs cashu.Proofs, target uint64) (cashu.Proofs, error) {
	if target == 0 {
		return cashu.Proofs{}, nil
	}
	if proofs.Amount() < target {
		return nil, ErrInsufficientBalance
	}

	sorted := make(cashu.Proofs, len(proofs))
	copy(sorted, proofs)
	slices.SortFunc(sorted, func(a, b cashu.Proof) int {
		return cmp.Compare(b.Amount, a.Amount)
	})

	// suffix[i] is the total of sorted[i:], used to prune branches
	// that can no longer reach the target
	suffix := make([]uint64, len(sorted)+1)
	for i := len(sorted) - 1; i >= 0; i-- {
		suffix[i] = suffix[i+1] + sorted[i].Amount
	}

	// seed with a greedy largest-first cover so a candidate always
	// exists even if the search budget runs out
	best := []int{}
	var bestSum uint64
	for i := range sorted {
		if bestSum >= target {
			break
		}
		best = append(best, i)
		bestSum += sorted[i].Amount
	}

	better := func(sum uint64, count int) bool {
		if sum != bestSum {
			return sum < bestSum
		}
		return count < len(best)
	}

	nodes := 0
	var current []int
	var search func(idx int, sum uint64)
	search = func(idx int, sum uint64) {
		if nodes >= selectionSearchBudget {
			return
		}
		nodes++

		if sum >= target {
			if better(sum, len(current)) {
				best = slices.Clone(current)
				bestSum = sum
			}
			return
		}
		if idx == len(sorted) || sum+suffix[idx] < target {
			return
		}

		current = append(current, idx)
		search(idx+1, sum+sorted[idx].Amount)
		current = current[:len(current)-1]

		search(idx+1, sum)
	}
	search(0, 0)

	selected := make(cashu.Proofs, len(best))
	for i, idx := range best {
		selected[i] = sorted[idx]
	}
	return selected, nil
}
