package usecase

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/trebuchet-org/govlock/internal/domain"
)

// DefaultCriticalSignatures are the calls that always receive the
// escalated delay: role changes, delay changes, pause toggles, reward token
// reassignment, upgrades and ownership moves.
var DefaultCriticalSignatures = []string{
	"grantRole(bytes32,address)",
	"revokeRole(bytes32,address)",
	"renounceRole(bytes32,address)",
	"updateDelay(uint256)",
	"pause()",
	"unpause()",
	"setEmergencyMode(bool)",
	"setRewardToken(address)",
	"upgradeTo(address)",
	"upgradeToAndCall(address,bytes)",
	"transferOwnership(address)",
	"setVotingParams(uint256,uint256,uint256,uint256,uint256)",
	"setGovernorSettings(uint256,uint256,uint256,uint256)",
}

// Fingerprint identifies a sensitive call by selector and, optionally, by
// target.
type Fingerprint struct {
	Signature string
	Selector  [4]byte
	// Target restricts the match to one address; nil matches any target.
	Target *common.Address
}

// NewFingerprint builds a fingerprint from a canonical signature
func NewFingerprint(signature string, target *common.Address) Fingerprint {
	return Fingerprint{Signature: signature, Selector: domain.Selector(signature), Target: target}
}

// Matches reports whether e carries this fingerprint.
func (f Fingerprint) Matches(e domain.Effect) bool {
	sel, ok := e.Selector()
	if !ok || sel != f.Selector {
		return false
	}
	return f.Target == nil || *f.Target == e.Target
}

// CriticalDetector classifies scheduled calls
type CriticalDetector struct {
	fingerprints []Fingerprint
}

// NewCriticalDetector creates a detector over the default signatures plus
// extra.
func NewCriticalDetector(extra []Fingerprint) *CriticalDetector {
	fps := make([]Fingerprint, 0, len(DefaultCriticalSignatures)+len(extra))
	for _, sig := range DefaultCriticalSignatures {
		fps = append(fps, NewFingerprint(sig, nil))
	}
	fps = append(fps, extra...)
	return &CriticalDetector{fingerprints: fps}
}

// Match returns the first fingerprint e matches.
func (d *CriticalDetector) Match(e domain.Effect) (Fingerprint, bool) {
	for _, f := range d.fingerprints {
		if f.Matches(e) {
			return f, true
		}
	}
	return Fingerprint{}, false
}

func (d *CriticalDetector) Fingerprints() []Fingerprint {
	return append([]Fingerprint(nil), d.fingerprints...)
}
