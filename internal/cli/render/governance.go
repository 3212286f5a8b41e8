package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/trebuchet-org/govlock/internal/adapters/abi"
	"github.com/trebuchet-org/govlock/internal/adapters/effects"
	"github.com/trebuchet-org/govlock/internal/domain"
)

// RenderParams prints every governed parameter
func RenderParams(out io.Writer, voting domain.VotingParams, settings domain.GovernorSettings, timelock domain.TimelockSettings) {
	fmt.Fprintln(out, headerStyle.Sprint("Voting"))
	fmt.Fprintln(out, kv([][2]string{
		{"Max voting power", formatAmount(voting.MaxVotingPower)},
		{"Quadratic factor", formatBasisPoints(voting.QuadraticFactor)},
		{"Time weight factor", formatBasisPoints(voting.TimeWeightFactor)},
		{"Root power", fmt.Sprintf("%d", voting.RootPower)},
		{"Min lock duration", formatDuration(voting.MinLockDuration)},
	}))
	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Sprint("Governor"))
	fmt.Fprintln(out, kv([][2]string{
		{"Voting delay", formatDuration(settings.VotingDelay)},
		{"Voting period", formatDuration(settings.VotingPeriod)},
		{"Proposal threshold", formatAmount(settings.ProposalThreshold)},
		{"Quorum", fmt.Sprintf("%d%%", settings.QuorumPercent)},
	}))
	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Sprint("Timelock"))
	fmt.Fprintln(out, kv([][2]string{
		{"Min delay", formatDuration(timelock.MinDelay)},
		{"Critical delay", formatDuration(timelock.CriticalEscalation)},
		{"Grace period", formatDuration(timelock.GracePeriod)},
		{"Execute while paused", fmt.Sprintf("%t", timelock.ExecuteWhilePaused)},
	}))
}

// RenderRoles prints the members of every capability, sorted by name
func RenderRoles(out io.Writer, roles map[domain.Capability][]common.Address, label AddressLabeler) {
	if len(roles) == 0 {
		fmt.Fprintln(out, "No roles granted")
		return
	}
	caps := make([]domain.Capability, 0, len(roles))
	for c := range roles {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i].String() < caps[j].String() })

	t := newTable()
	t.AppendHeader(table.Row{"ROLE", "MEMBER"})
	for _, c := range caps {
		for i, m := range roles[c] {
			name := ""
			if i == 0 {
				name = nameStyle.Sprint(c.String())
			}
			t.AppendRow(table.Row{name, formatAddress(m, label)})
		}
	}
	fmt.Fprintln(out, t.Render())
}

// RenderEvents prints indexed events oldest first
func RenderEvents(out io.Writer, events []domain.Event, label AddressLabeler) {
	if len(events) == 0 {
		fmt.Fprintln(out, "No events found")
		return
	}
	t := newTable()
	t.AppendHeader(table.Row{"TIME", "SURFACE", "EVENT", "ACTOR", "DETAILS"})
	for _, e := range events {
		t.AppendRow(table.Row{
			formatTime(e.At),
			labelStyle.Sprint(e.Surface),
			nameStyle.Sprint(e.Kind),
			formatAddress(e.Actor, label),
			eventDetails(e),
		})
	}
	fmt.Fprintln(out, t.Render())
}

func eventDetails(e domain.Event) string {
	var parts []string
	if e.Subject != "" {
		subject := e.Subject
		if len(subject) == 66 {
			subject = subject[:10]
		}
		parts = append(parts, subject)
	}
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, labelStyle.Sprint(k+"=")+e.Attrs[k])
	}
	return strings.Join(parts, " ")
}

// RenderOutbox prints the relayed external calls
func RenderOutbox(out io.Writer, entries []effects.OutboxEntry, codec *abi.Codec, label AddressLabeler) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "Outbox is empty")
		return
	}
	t := newTable()
	t.AppendHeader(table.Row{"#", "TIME", "CALLER", "CALL"})
	for i, e := range entries {
		effect := domain.Effect{Target: e.Target, Value: e.Value, Payload: e.Payload}
		t.AppendRow(table.Row{
			i + 1,
			formatTime(e.At),
			formatAddress(e.Caller, label),
			codec.DecodeEffect(effect).FormatCompact(),
		})
	}
	fmt.Fprintln(out, t.Render())
}
