package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fatih/color"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trebuchet-org/govlock/internal/domain"
)

const testProject = `
[accounts]
alice = "0x00000000000000000000000000000000000000a1"
bob   = "0x00000000000000000000000000000000000000b2"

[voting]
min_lock_duration = "1h"

[governor]
voting_delay = "1s"
voting_period = "1h"
proposal_threshold = "0"
quorum_percent = 1

[roles]
guardian = ["bob"]
emergency = ["bob"]
`

func TestMatchPrefix(t *testing.T) {
	a := common.HexToHash("0xabcd000000000000000000000000000000000000000000000000000000000001")
	b := common.HexToHash("0xabce000000000000000000000000000000000000000000000000000000000002")
	ids := []common.Hash{a, b}

	tests := []struct {
		name    string
		ref     string
		want    common.Hash
		wantErr string
	}{
		{name: "full id", ref: a.Hex(), want: a},
		{name: "unique prefix", ref: "0xabcd", want: a},
		{name: "prefix without 0x", ref: "ABCE", want: b},
		{name: "ambiguous", ref: "0xabc", wantErr: "ambiguous"},
		{name: "no match", ref: "0xff", wantErr: "no id matches"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := matchPrefix(tt.ref, ids)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHash(t *testing.T) {
	_, ok := parseHash("0x1234")
	assert.False(t, ok)

	_, ok = parseHash("0x" + string(bytes.Repeat([]byte("zz"), 32)))
	assert.False(t, ok)

	want := crypto.Keccak256Hash([]byte("x"))
	got, ok := parseHash(" " + want.Hex() + " ")
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestParseSalt(t *testing.T) {
	assert.Equal(t, common.Hash{}, parseSalt(""))

	h := crypto.Keccak256Hash([]byte("v1"))
	assert.Equal(t, h, parseSalt(h.Hex()))
	assert.Equal(t, h, parseSalt("v1"))
}

func TestParseSurface(t *testing.T) {
	s, err := parseSurface("Timelock")
	require.NoError(t, err)
	assert.Equal(t, domain.SurfaceTimelock, s)

	_, err = parseSurface("roles")
	assert.Error(t, err)
}

// runCLI executes one command against the project in the working directory
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--non-interactive"))
	err := run(t.Context(), root)
	return out.String(), err
}

func setupProject(t *testing.T) string {
	t.Helper()
	color.NoColor = true
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "govlock.toml"), []byte(testProject), 0644))
	t.Chdir(dir)
	return dir
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "govlock version")
}

func TestStakeCommands(t *testing.T) {
	dir := setupProject(t)

	out, err := runCLI(t, "lock", "1000", "--from", "alice", "--at", "1000", "--json")
	require.NoError(t, err)
	var lock struct {
		Total    *uint256.Int
		UnlockAt uint64
	}
	require.NoError(t, json.Unmarshal([]byte(out), &lock))
	assert.Equal(t, uint64(1000), lock.Total.Uint64())
	assert.Equal(t, uint64(4600), lock.UnlockAt)

	assert.FileExists(t, filepath.Join(dir, ".govlock", "state.json"))

	_, err = runCLI(t, "unlock", "--from", "alice", "--at", "2000")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLockPeriodNotExpired)

	out, err = runCLI(t, "power", "alice", "--at", "2000", "--json")
	require.NoError(t, err)
	var report struct {
		Locked    *uint256.Int
		LockStart uint64
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, uint64(1000), report.Locked.Uint64())
	assert.Equal(t, uint64(1000), report.LockStart)

	_, err = runCLI(t, "lock", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--from is required")
}

func TestProposalCommands(t *testing.T) {
	setupProject(t)

	_, err := runCLI(t, "lock", "1000000", "--from", "alice", "--at", "1000")
	require.NoError(t, err)

	out, err := runCLI(t, "propose", "--from", "alice", "--at", "1100", "--json",
		"-d", "Pause governor", "--target", "governor", "--sig", "pause()")
	require.NoError(t, err)
	var created struct {
		Proposal struct {
			ID common.Hash `json:"id"`
		}
		State domain.ProposalState
	}
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, domain.ProposalPending, created.State)

	out, err = runCLI(t, "proposal", "state", created.Proposal.ID.Hex()[:10], "--at", "1200")
	require.NoError(t, err)
	assert.Contains(t, out, string(domain.ProposalActive))

	_, err = runCLI(t, "vote", "for", created.Proposal.ID.Hex(), "--from", "alice", "--at", "1200")
	require.NoError(t, err)

	_, err = runCLI(t, "vote", "against", created.Proposal.ID.Hex(), "--from", "alice", "--at", "1300")
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

	out, err = runCLI(t, "proposal", "list", "--at", "1300", "--json")
	require.NoError(t, err)
	var listed []struct {
		State domain.ProposalState
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, domain.ProposalActive, listed[0].State)
}

func TestAdminCommands(t *testing.T) {
	setupProject(t)

	_, err := runCLI(t, "pause", "--from", "alice", "--at", "1000")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	out, err := runCLI(t, "pause", "--from", "bob", "--at", "1000", "--json")
	require.NoError(t, err)
	var status map[string]domain.PauseState
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status["governor"].Paused)
	assert.False(t, status["timelock"].Paused)

	out, err = runCLI(t, "roles", "list", "--json")
	require.NoError(t, err)
	var roles map[string][]string
	require.NoError(t, json.Unmarshal([]byte(out), &roles))
	assert.Contains(t, roles["GUARDIAN_ROLE"], common.HexToAddress("0xb2").Hex())

	out, err = runCLI(t, "events", "--kind", string(domain.EventPaused), "--json")
	require.NoError(t, err)
	var events []domain.Event
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 1)
	assert.Equal(t, domain.SurfaceGovernor, events[0].Surface)

	out, err = runCLI(t, "params", "set", "--root-power", "3", "--encode")
	require.NoError(t, err)
	assert.Contains(t, out, "0x")
}
