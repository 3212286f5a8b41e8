package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

func TestCriticalDetector(t *testing.T) {
	rewards := carol
	detector := usecase.NewCriticalDetector([]usecase.Fingerprint{
		usecase.NewFingerprint("setFeeRecipient(address)", &rewards),
	})

	tests := []struct {
		name     string
		effect   domain.Effect
		critical bool
		sig      string
	}{
		{"role grant", call(target, "grantRole(bytes32,address)"), true, "grantRole(bytes32,address)"},
		{"role revoke", call(target, "revokeRole(bytes32,address)"), true, "revokeRole(bytes32,address)"},
		{"delay change", call(target, "updateDelay(uint256)"), true, "updateDelay(uint256)"},
		{"pause toggle", call(target, "pause()"), true, "pause()"},
		{"reward token", call(target, "setRewardToken(address)"), true, "setRewardToken(address)"},
		{"plain transfer", call(target, "transfer(address,uint256)"), false, ""},
		{"empty payload", domain.Effect{Target: target}, false, ""},
		{"short payload", domain.Effect{Target: target, Payload: []byte{0x8f, 0x28}}, false, ""},
		{"targeted match", call(carol, "setFeeRecipient(address)"), true, "setFeeRecipient(address)"},
		{"targeted miss", call(bob, "setFeeRecipient(address)"), false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp, ok := detector.Match(tt.effect)
			assert.Equal(t, tt.critical, ok)
			assert.Equal(t, tt.sig, fp.Signature)
		})
	}

	assert.Len(t, detector.Fingerprints(), len(usecase.DefaultCriticalSignatures)+1)
}
