package render

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trebuchet-org/govlock/internal/usecase"
)

// PowerRenderer renders voting power reports
type PowerRenderer struct {
	out   io.Writer
	label AddressLabeler
}

// NewPowerRenderer creates a new power renderer
func NewPowerRenderer(out io.Writer, label AddressLabeler) *PowerRenderer {
	return &PowerRenderer{out: out, label: label}
}

// Render prints the locked stake, own power and effective power of an account
func (r *PowerRenderer) Render(report *usecase.PowerReport) error {
	fmt.Fprintln(r.out, headerStyle.Sprint("Voting Power"))
	rows := [][2]string{
		{"Account", formatAddress(report.Account, r.label)},
		{"At", formatTime(report.At)},
		{"Locked", amountStyle.Sprint(formatAmount(report.Locked))},
	}
	if !report.Locked.IsZero() {
		rows = append(rows,
			[2]string{"Lock start", fmt.Sprintf("%s (%s)", formatTime(report.LockStart), formatRelative(report.LockStart, report.At))},
			[2]string{"Time weight", formatBasisPoints(report.Multiplier)},
		)
	}
	rows = append(rows, [2]string{"Own power", formatAmount(report.Own)})
	if report.Delegate != (common.Address{}) {
		rows = append(rows, [2]string{"Delegated to", formatAddress(report.Delegate, r.label)})
	}
	rows = append(rows, [2]string{"Effective power", amountStyle.Sprint(formatAmount(report.Effective))})
	fmt.Fprintln(r.out, kv(rows))
	return nil
}

// RenderLock prints the outcome of a lock
func (r *PowerRenderer) RenderLock(result *usecase.LockResult) error {
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Locked %s (total %s)", formatAmount(result.Added), formatAmount(result.Total))))
	fmt.Fprintln(r.out, kv([][2]string{
		{"Account", formatAddress(result.Account, r.label)},
		{"Lock start", formatTime(result.Start)},
		{"Unlockable at", formatTime(result.UnlockAt)},
	}))
	return nil
}

var _ Renderer[*usecase.PowerReport] = (*PowerRenderer)(nil)
