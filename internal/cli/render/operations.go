package render

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/trebuchet-org/govlock/internal/adapters/abi"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// OperationsRenderer renders timelock operations
type OperationsRenderer struct {
	out   io.Writer
	codec *abi.Codec
	label AddressLabeler
}

// NewOperationsRenderer creates a new operations renderer
func NewOperationsRenderer(out io.Writer, codec *abi.Codec, label AddressLabeler) *OperationsRenderer {
	return &OperationsRenderer{out: out, codec: codec, label: label}
}

// RenderList prints one row per operation, ordered as given
func (r *OperationsRenderer) RenderList(views []*usecase.OperationView) error {
	if len(views) == 0 {
		fmt.Fprintln(r.out, "No timelock operations found")
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"ID", "STATE", "CALL", "ETA", "DELAY"})
	for _, v := range views {
		op := v.Operation
		call := r.codec.DecodeEffect(op.Call).FormatCompact()
		if op.Critical {
			call = criticalTag.Sprint("[critical] ") + call
		}
		t.AppendRow(table.Row{
			shortHash(op.ID),
			stateLabel(string(v.State)),
			call,
			formatRelative(op.ETA, v.Now),
			formatDuration(op.EffectiveDelay),
		})
	}
	fmt.Fprintln(r.out, t.Render())
	return nil
}

// Render prints a single operation
func (r *OperationsRenderer) Render(v *usecase.OperationView) error {
	op := v.Operation
	decoded := r.codec.DecodeEffect(op.Call)

	fmt.Fprintln(r.out, headerStyle.Sprint("Timelock Operation"))
	rows := [][2]string{
		{"ID", op.ID.Hex()},
		{"State", stateLabel(string(v.State))},
		{"Call", decoded.FormatCompact()},
		{"Target", formatAddress(op.Call.Target, r.label)},
		{"Value", formatAmount(op.Call.ValueOrZero())},
	}
	if op.Predecessor != (common.Hash{}) {
		rows = append(rows, [2]string{"Predecessor", op.Predecessor.Hex()})
	}
	rows = append(rows,
		[2]string{"Salt", op.Salt.Hex()},
		[2]string{"Proposer", formatAddress(op.Proposer, r.label)},
		[2]string{"Scheduled", formatTime(op.ScheduledAt)},
	)
	delay := formatDuration(op.EffectiveDelay)
	if op.Critical {
		delay = fmt.Sprintf("%s %s (requested %s, matched %s)",
			delay, criticalTag.Sprint("critical"), formatDuration(op.RequestedDelay), op.Fingerprint)
	}
	rows = append(rows,
		[2]string{"Delay", delay},
		[2]string{"Ready at", fmt.Sprintf("%s (%s)", formatTime(op.ETA), formatRelative(op.ETA, v.Now))},
		[2]string{"Expires at", formatTime(op.ExpiresAt())},
	)
	if op.Done {
		rows = append(rows, [2]string{"Executed", fmt.Sprintf("%s by %s", formatTime(op.ExecutedAt), formatAddress(op.Executor, r.label))})
	}
	if op.Canceled {
		rows = append(rows, [2]string{"Canceled", formatTime(op.CanceledAt)})
	}
	fmt.Fprintln(r.out, kv(rows))

	if len(decoded.Inputs) > 0 {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, headerStyle.Sprint("Arguments"))
		t := newTable()
		for _, in := range decoded.Inputs {
			t.AppendRow(table.Row{"  " + in.Name, labelStyle.Sprint(in.Type), abi.FormatValue(in.Value)})
		}
		fmt.Fprintln(r.out, t.Render())
	}
	return nil
}

// RenderScheduled prints the operations created by one schedule call
func (r *OperationsRenderer) RenderScheduled(ops []*usecase.OperationView) error {
	for _, v := range ops {
		msg := fmt.Sprintf("Scheduled %s, ready %s", shortHash(v.Operation.ID), formatRelative(v.Operation.ETA, v.Now))
		fmt.Fprintln(r.out, FormatSuccess(msg))
		if v.Operation.Critical {
			fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("%s is critical: delay raised to %s",
				v.Operation.Fingerprint, formatDuration(v.Operation.EffectiveDelay))))
		}
	}
	return nil
}

// RenderPause prints the emergency flags of both surfaces
func RenderPause(out io.Writer, governor, timelock domain.PauseState) {
	flag := func(on bool, label string) string {
		if on {
			return warnStyle.Sprint(label)
		}
		return labelStyle.Sprint("off")
	}
	fmt.Fprintln(out, kv([][2]string{
		{"Governor paused", flag(governor.Paused, "paused")},
		{"Governor emergency", flag(governor.Emergency, "emergency")},
		{"Timelock paused", flag(timelock.Paused, "paused")},
		{"Timelock emergency", flag(timelock.Emergency, "emergency")},
	}))
}

var _ Renderer[*usecase.OperationView] = (*OperationsRenderer)(nil)
