package interactive

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/sahilm/fuzzy"

	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// SelectorAdapter handles interactive selection
type SelectorAdapter struct {
	config *config.RuntimeConfig
}

// NewSelectorAdapter creates a new selector adapter
func NewSelectorAdapter(cfg *config.RuntimeConfig) (*SelectorAdapter, error) {
	return &SelectorAdapter{config: cfg}, nil
}

// SelectProposal asks the user to pick one of proposals
func (s *SelectorAdapter) SelectProposal(ctx context.Context, proposals []*usecase.ProposalView, prompt string) (*usecase.ProposalView, error) {
	if len(proposals) == 0 {
		return nil, fmt.Errorf("no proposals to select from")
	}

	if len(proposals) == 1 {
		return proposals[0], nil
	}

	// In non-interactive mode, we can't select
	if s.config.NonInteractive {
		return nil, fmt.Errorf("%d proposals match; pass a proposal id (interactive selection disabled)", len(proposals))
	}

	options := formatProposalOptions(proposals)

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | faint }}",
		Selected: "✓ {{ . | green }}",
		Help:     color.New(color.FgYellow).Sprint("Use arrow keys to navigate, Enter to select"),
	}

	promptSelect := promptui.Select{
		Label:             prompt,
		Items:             options,
		Templates:         templates,
		Size:              10,
		StartInSearchMode: true,
		Searcher:          createFuzzySearchFunc(plainProposalOptions(proposals)),
	}

	index, _, err := promptSelect.Run()
	if err != nil {
		return nil, fmt.Errorf("selection cancelled: %w", err)
	}

	return proposals[index], nil
}

// formatProposalOptions renders "title [state] (0x1234abcd)"
func formatProposalOptions(proposals []*usecase.ProposalView) []string {
	options := make([]string, len(proposals))
	for i, v := range proposals {
		title := color.New(color.FgWhite, color.Bold).Sprint(proposalTitle(v))
		state := color.New(color.FgYellow).Sprintf("[%s]", v.State)
		id := color.New(color.FgBlue).Sprint(v.Proposal.ID.Hex()[:10])
		options[i] = fmt.Sprintf("%s %s (%s)", title, state, id)
	}
	return options
}

// plainProposalOptions are the searchable, uncolored labels
func plainProposalOptions(proposals []*usecase.ProposalView) []string {
	options := make([]string, len(proposals))
	for i, v := range proposals {
		options[i] = fmt.Sprintf("%s %s %s", proposalTitle(v), v.State, v.Proposal.ID.Hex())
	}
	return options
}

func proposalTitle(v *usecase.ProposalView) string {
	title, _, _ := strings.Cut(strings.TrimSpace(v.Proposal.Description), "\n")
	title = strings.TrimLeft(title, "# ")
	if title == "" {
		return "(no description)"
	}
	if len(title) > 60 {
		title = title[:57] + "..."
	}
	return title
}

// createFuzzySearchFunc creates a fuzzy search function for promptui
func createFuzzySearchFunc(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		// Empty search shows all items
		if input == "" {
			return true
		}

		input = strings.ToLower(input)
		item := strings.ToLower(items[index])

		if strings.Contains(item, input) {
			return true
		}

		return len(fuzzy.Find(input, []string{item})) > 0
	}
}

var _ usecase.ProposalSelector = (*SelectorAdapter)(nil)
