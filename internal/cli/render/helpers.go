package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/holiman/uint256"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	labelStyle   = color.New(color.Faint)
	headerStyle  = color.New(color.Bold, color.FgHiWhite)
	addressStyle = color.New(color.FgWhite)
	nameStyle    = color.New(color.FgCyan)
	amountStyle  = color.New(color.FgHiWhite, color.Bold)
	warnStyle    = color.New(color.FgYellow)
	criticalTag  = color.New(color.FgRed, color.Bold)

	voteForStyle     = color.New(color.FgGreen)
	voteAgainstStyle = color.New(color.FgRed)

	title = cases.Title(language.English)
)

// AddressLabeler names well-known addresses; "" means unnamed
type AddressLabeler func(common.Address) string

// FormatWarning formats a warning message with the warning icon
func FormatWarning(message string) string {
	return color.New(color.FgYellow).Sprintf("⚠️  %s", message)
}

// FormatError formats an error message with the error icon
func FormatError(message string) string {
	if len(message) > 0 {
		message = strings.ToUpper(message[:1]) + message[1:]
	}
	return color.New(color.FgRed).Sprintf("❌ %s", message)
}

// FormatSuccess formats a success message with the success icon
func FormatSuccess(message string) string {
	return color.New(color.FgGreen).Sprintf("✅ %s", message)
}

func formatAddress(addr common.Address, label AddressLabeler) string {
	if addr == (common.Address{}) {
		return labelStyle.Sprint("anyone")
	}
	if label != nil {
		if name := label(addr); name != "" {
			return nameStyle.Sprint(name) + " " + labelStyle.Sprintf("(%s)", shortAddress(addr))
		}
	}
	return addressStyle.Sprint(addr.Hex())
}

func shortAddress(addr common.Address) string {
	h := addr.Hex()
	return h[:6] + "…" + h[len(h)-4:]
}

func shortHash(h common.Hash) string {
	return h.Hex()[:10]
}

func formatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.PrettyDec(',')
}

// formatTime renders a unix timestamp in UTC
func formatTime(ts uint64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(int64(ts), 0).UTC().Format("2006-01-02 15:04:05Z")
}

// formatDuration renders whole seconds as e.g. "2d 4h", "15m", "30s"
func formatDuration(seconds uint64) string {
	if seconds == 0 {
		return "0s"
	}
	units := []struct {
		name string
		size uint64
	}{{"d", 86400}, {"h", 3600}, {"m", 60}, {"s", 1}}
	var parts []string
	for _, u := range units {
		if seconds >= u.size {
			parts = append(parts, fmt.Sprintf("%d%s", seconds/u.size, u.name))
			seconds %= u.size
		}
		if len(parts) == 2 {
			break
		}
	}
	return strings.Join(parts, " ")
}

// formatRelative renders target relative to now: "in 2h", "3d ago"
func formatRelative(target, now uint64) string {
	switch {
	case target == now:
		return "now"
	case target > now:
		return "in " + formatDuration(target-now)
	default:
		return formatDuration(now-target) + " ago"
	}
}

func formatBasisPoints(bp uint64) string {
	return fmt.Sprintf("%d.%02dx", bp/10_000, bp%10_000/100)
}

// stateLabel colors lifecycle states: green for success, yellow while
// waiting, red for dead ends.
func stateLabel(state string) string {
	label := title.String(state)
	switch state {
	case "active", "ready", "succeeded":
		return color.New(color.FgGreen, color.Bold).Sprint(label)
	case "pending", "queued":
		return color.New(color.FgYellow).Sprint(label)
	case "executed", "done":
		return color.New(color.FgBlue).Sprint(label)
	case "defeated", "canceled", "expired":
		return color.New(color.FgRed).Sprint(label)
	default:
		return label
	}
}

// newTable is the borderless layout shared by every list view
func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateHeader = false
	t.Style().Options.SeparateColumns = false
	t.Style().Box = table.BoxStyle{
		PaddingRight: "   ",
	}
	return t
}

// kv renders aligned "label: value" lines
func kv(rows [][2]string) string {
	t := newTable()
	for _, r := range rows {
		t.AppendRow(table.Row{labelStyle.Sprint(r[0] + ":"), r[1]})
	}
	return t.Render()
}
