package effects

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/trebuchet-org/govlock/internal/adapters/abi"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// OutboxEntry is one relayed effect
type OutboxEntry struct {
	At      uint64         `json:"at"`
	Caller  common.Address `json:"caller"`
	Target  common.Address `json:"target"`
	Value   *uint256.Int   `json:"value"`
	Payload hexutil.Bytes  `json:"payload"`
	Call    string         `json:"call,omitempty"`
}

// Outbox appends effects for external targets to a JSON lines journal that
// an external relayer consumes.
type Outbox struct {
	mu    sync.Mutex
	path  string
	clock usecase.Clock
	codec *abi.Codec
}

// NewOutbox creates a new outbox under the data directory
func NewOutbox(cfg *config.RuntimeConfig, clock usecase.Clock, codec *abi.Codec) *Outbox {
	return &Outbox{
		path:  filepath.Join(cfg.DataDir, "outbox.jsonl"),
		clock: clock,
		codec: codec,
	}
}

// Path returns the journal location.
func (o *Outbox) Path() string {
	return o.path
}

// Perform appends the effect to the journal
func (o *Outbox) Perform(ctx context.Context, caller common.Address, effect domain.Effect) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry := OutboxEntry{
		At:      o.clock.Now(),
		Caller:  caller,
		Target:  effect.Target,
		Value:   effect.ValueOrZero(),
		Payload: effect.Payload,
		Call:    o.codec.DecodeEffect(effect).FormatCompact(),
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outbox entry: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(o.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create outbox directory: %w", err)
	}
	f, err := os.OpenFile(o.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open outbox: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("failed to append to outbox: %w", err)
	}
	return nil, nil
}

// Entries reads back the journal. A missing journal is empty.
func (o *Outbox) Entries(ctx context.Context) ([]OutboxEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := os.Open(o.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open outbox: %w", err)
	}
	defer f.Close()

	var entries []OutboxEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry OutboxEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("failed to parse outbox line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outbox: %w", err)
	}
	return entries, nil
}

// Ensure Outbox implements EffectPerformer
var _ usecase.EffectPerformer = (*Outbox)(nil)
