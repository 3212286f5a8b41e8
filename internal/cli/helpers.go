package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/trebuchet-org/govlock/internal/adapters/proposalfile"
	"github.com/trebuchet-org/govlock/internal/app"
	"github.com/trebuchet-org/govlock/internal/cli/render"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// caller resolves --from. Every mutating command acts as some account.
func caller(a *app.App) (common.Address, error) {
	if a.Config.From == "" {
		return common.Address{}, errors.New("--from is required (address or [accounts] name)")
	}
	return a.Config.Project.ResolveAccount(a.Config.From)
}

// account resolves an account argument, defaulting to --from
func account(a *app.App, args []string) (common.Address, error) {
	if len(args) > 0 {
		return a.Config.Project.ResolveAccount(args[0])
	}
	return caller(a)
}

// persist saves the state after a successful mutation
func persist(cmd *cobra.Command, a *app.App) error {
	if err := a.Holder.Persist(cmd.Context(), a.Store); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// labeler names addresses from [accounts] and the built-in surfaces
func labeler(a *app.App) render.AddressLabeler {
	return a.Config.Project.AccountName
}

func parseAmount(s string) (*uint256.Int, error) {
	return proposalfile.ParseValue(s)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// parseHash accepts a full 32 byte hex id
func parseHash(s string) (common.Hash, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") || len(s) != 2+2*common.HashLength {
		return common.Hash{}, false
	}
	b := common.FromHex(s)
	if len(b) != common.HashLength {
		return common.Hash{}, false
	}
	return common.BytesToHash(b), true
}

// matchPrefix finds the unique id starting with ref; full ids match
// directly.
func matchPrefix(ref string, ids []common.Hash) (common.Hash, error) {
	if h, ok := parseHash(ref); ok {
		return h, nil
	}
	ref = strings.ToLower(strings.TrimSpace(ref))
	if !strings.HasPrefix(ref, "0x") {
		ref = "0x" + ref
	}
	var found []common.Hash
	for _, id := range ids {
		if strings.HasPrefix(strings.ToLower(id.Hex()), ref) {
			found = append(found, id)
		}
	}
	switch len(found) {
	case 0:
		return common.Hash{}, fmt.Errorf("no id matches %q", ref)
	case 1:
		return found[0], nil
	default:
		return common.Hash{}, fmt.Errorf("%q is ambiguous: %d ids match", ref, len(found))
	}
}

// resolveProposal picks a proposal by id or id prefix. Without a reference
// the user selects among the proposals in states.
func resolveProposal(cmd *cobra.Command, a *app.App, args []string, states ...domain.ProposalState) (*usecase.ProposalView, error) {
	if len(args) > 0 {
		all, err := a.Governor.List(cmd.Context())
		if err != nil {
			return nil, err
		}
		ids := make([]common.Hash, len(all))
		for i, v := range all {
			ids[i] = v.Proposal.ID
		}
		id, err := matchPrefix(args[0], ids)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrNonexistentProposal, err)
		}
		return a.Governor.Proposal(cmd.Context(), id)
	}
	candidates, err := a.Governor.List(cmd.Context(), states...)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no proposals in %v", domain.ErrNonexistentProposal, states)
	}
	return a.Selector.SelectProposal(cmd.Context(), candidates, "Select proposal")
}

// resolveOperation picks a timelock operation by id or id prefix
func resolveOperation(a *app.App, ref string) (*usecase.OperationView, error) {
	all := a.Timelock.List()
	ids := make([]common.Hash, len(all))
	for i, v := range all {
		ids[i] = v.Operation.ID
	}
	id, err := matchPrefix(ref, ids)
	if err != nil {
		return nil, &domain.OperationStateError{Current: domain.OperationUnset, Reason: err.Error()}
	}
	return a.Timelock.Get(id)
}

// confirm asks before destructive actions; skipped by --yes and in
// non-interactive mode.
func confirm(a *app.App, yes bool, label string) bool {
	if yes || a.Config.NonInteractive {
		return true
	}
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	return err == nil
}
