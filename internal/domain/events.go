package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind names a signal emitted for external observers and indexers.
type EventKind string

const (
	EventProposalCreated      EventKind = "ProposalCreated"
	EventVoteCast             EventKind = "VoteCast"
	EventProposalCanceled     EventKind = "ProposalCanceled"
	EventProposalQueued       EventKind = "ProposalQueued"
	EventProposalExecuted     EventKind = "ProposalExecuted"
	EventParamsUpdated        EventKind = "ParamsUpdated"
	EventSettingsUpdated      EventKind = "GovernorSettingsUpdated"
	EventEmergencyModeChanged EventKind = "EmergencyModeChanged"
	EventPaused               EventKind = "Paused"
	EventUnpaused             EventKind = "Unpaused"
	EventTokensLocked         EventKind = "TokensLocked"
	EventTokensUnlocked       EventKind = "TokensUnlocked"
	EventDelegateChanged      EventKind = "DelegateChanged"

	EventOperationScheduled EventKind = "CallScheduled"
	EventCriticalOperation  EventKind = "CriticalOperationDetected"
	EventOperationExecuted  EventKind = "CallExecuted"
	EventOperationCanceled  EventKind = "Cancelled"
	EventMinDelayChanged    EventKind = "MinDelayChange"

	EventRoleGranted EventKind = "RoleGranted"
	EventRoleRevoked EventKind = "RoleRevoked"
)

// Surface identifies the component that emitted an event.
type Surface string

const (
	SurfaceGovernor Surface = "governor"
	SurfaceTimelock Surface = "timelock"
	SurfaceRoles    Surface = "roles"
)

// Event is one committed state change.
type Event struct {
	Kind    EventKind         `json:"kind"`
	Surface Surface           `json:"surface"`
	At      uint64            `json:"at"`
	Actor   common.Address    `json:"actor"`
	Subject string            `json:"subject,omitempty"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

func (e Event) String() string {
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Attrs[k])
	}
	return fmt.Sprintf("%s@%d %s actor=%s subject=%s %s",
		e.Kind, e.At, e.Surface, e.Actor.Hex()[:10]+"...", e.Subject, strings.Join(parts, " "))
}
