package render

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"github.com/trebuchet-org/govlock/internal/adapters/abi"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// ProposalsRenderer renders proposals and their tallies
type ProposalsRenderer struct {
	out   io.Writer
	codec *abi.Codec
	label AddressLabeler
}

// NewProposalsRenderer creates a new proposals renderer
func NewProposalsRenderer(out io.Writer, codec *abi.Codec, label AddressLabeler) *ProposalsRenderer {
	return &ProposalsRenderer{out: out, codec: codec, label: label}
}

// RenderList prints one row per proposal
func (r *ProposalsRenderer) RenderList(views []*usecase.ProposalView) error {
	if len(views) == 0 {
		fmt.Fprintln(r.out, "No proposals found")
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"ID", "STATE", "TITLE", "FOR", "AGAINST", "ABSTAIN", "ENDS"})
	for _, v := range views {
		p := v.Proposal
		t.AppendRow(table.Row{
			shortHash(p.ID),
			stateLabel(string(v.State)),
			Title(p.Description),
			formatAmount(p.Votes.For),
			formatAmount(p.Votes.Against),
			formatAmount(p.Votes.Abstain),
			formatRelative(p.VoteEnd, v.Now),
		})
	}
	fmt.Fprintln(r.out, t.Render())
	return nil
}

// Render prints a single proposal with its calls and votes
func (r *ProposalsRenderer) Render(v *usecase.ProposalView) error {
	p := v.Proposal
	fmt.Fprintln(r.out, headerStyle.Sprint(Title(p.Description)))

	rows := [][2]string{
		{"ID", p.ID.Hex()},
		{"State", stateLabel(string(v.State))},
		{"Proposer", formatAddress(p.Proposer, r.label)},
		{"Snapshot", formatTime(p.Snapshot)},
		{"Voting", fmt.Sprintf("%s → %s (%s)", formatTime(p.VoteStart), formatTime(p.VoteEnd), formatRelative(p.VoteEnd, v.Now))},
	}
	if p.SnapshotSupply == nil {
		rows = append(rows, [2]string{"Quorum", fmt.Sprintf("%d%% of supply at snapshot close", p.QuorumPercent)})
	} else {
		rows = append(rows, [2]string{"Quorum", fmt.Sprintf("%s of %s (%d%%)", formatAmount(v.QuorumVotes), formatAmount(p.SnapshotSupply), p.QuorumPercent)})
	}
	if p.Queued() {
		rows = append(rows, [2]string{"Queued", formatTime(p.QueuedAt)})
	}
	if p.Executed {
		rows = append(rows, [2]string{"Executed", formatTime(p.ExecutedAt)})
	}
	if p.Canceled {
		rows = append(rows, [2]string{"Canceled", formatTime(p.CanceledAt)})
	}
	fmt.Fprintln(r.out, kv(rows))

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, headerStyle.Sprint("Votes"))
	fmt.Fprintln(r.out, kv([][2]string{
		{"For", formatAmount(p.Votes.For)},
		{"Against", formatAmount(p.Votes.Against)},
		{"Abstain", formatAmount(p.Votes.Abstain)},
		{"Participation", formatAmount(p.Votes.Total())},
	}))

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, headerStyle.Sprint("Calls"))
	ops := lo.SliceToMap(p.Ops(), func(qc models.QueuedCall) (int, common.Hash) { return qc.Index, qc.OperationID })
	for i, call := range p.Calls {
		line := fmt.Sprintf("  %d. %s", i+1, r.codec.DecodeEffect(call).FormatCompact())
		if id, ok := ops[i]; ok {
			line += labelStyle.Sprintf("  op %s", shortHash(id))
		}
		fmt.Fprintln(r.out, line)
	}

	if len(p.Voters) > 0 {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, headerStyle.Sprint("Ballots"))
		r.renderBallots(p.Voters)
	}
	return nil
}

func (r *ProposalsRenderer) renderBallots(voters map[common.Address]models.Ballot) {
	accounts := lo.Keys(voters)
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Cmp(accounts[j]) < 0
	})

	t := newTable()
	for _, a := range accounts {
		b := voters[a]
		row := table.Row{"  " + formatAddress(a, r.label), voteLabel(b.Option), formatAmount(b.Weight)}
		if b.Reason != "" {
			row = append(row, labelStyle.Sprintf("%q", b.Reason))
		}
		t.AppendRow(row)
	}
	fmt.Fprintln(r.out, t.Render())
}

// RenderBallot prints the outcome of a vote
func (r *ProposalsRenderer) RenderBallot(id common.Hash, b *models.Ballot) error {
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Voted %s on %s with weight %s", voteLabel(b.Option), shortHash(id), formatAmount(b.Weight))))
	if b.Weight == nil || b.Weight.IsZero() {
		fmt.Fprintln(r.out, FormatWarning("No voting power at the proposal snapshot; the ballot counts as participation only"))
	}
	return nil
}

// RenderTally prints the per-option totals
func (r *ProposalsRenderer) RenderTally(tally models.Tally) error {
	fmt.Fprintln(r.out, kv([][2]string{
		{"For", formatAmount(tally.For)},
		{"Against", formatAmount(tally.Against)},
		{"Abstain", formatAmount(tally.Abstain)},
	}))
	return nil
}

func voteLabel(v domain.VoteType) string {
	switch v {
	case domain.VoteFor:
		return voteForStyle.Sprint(v.String())
	case domain.VoteAgainst:
		return voteAgainstStyle.Sprint(v.String())
	default:
		return labelStyle.Sprint(v.String())
	}
}

// Title is the first line of a description, without markdown heading marks
func Title(description string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(description), "\n")
	line = strings.TrimSpace(strings.TrimLeft(line, "#"))
	if line == "" {
		return "(no description)"
	}
	if utf8.RuneCountInString(line) > 60 {
		line = string([]rune(line)[:57]) + "..."
	}
	return line
}

var _ Renderer[*usecase.ProposalView] = (*ProposalsRenderer)(nil)
