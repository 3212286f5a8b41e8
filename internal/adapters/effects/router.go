package effects

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

var (
	ErrUnsupportedCall  = errors.New("unsupported call")
	ErrValueNotAccepted = errors.New("target does not accept value")
)

// Handler performs effects addressed to one in-process target
type Handler interface {
	Handle(ctx context.Context, caller common.Address, effect domain.Effect) ([]byte, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, caller common.Address, effect domain.Effect) ([]byte, error)

func (f HandlerFunc) Handle(ctx context.Context, caller common.Address, effect domain.Effect) ([]byte, error) {
	return f(ctx, caller, effect)
}

// Router is the EffectPerformer. Effects whose target has a registered
// handler are dispatched in process; every other effect is relayed.
type Router struct {
	mu       sync.RWMutex
	handlers map[common.Address]Handler
	relay    usecase.EffectPerformer
	log      *slog.Logger
}

// NewRouter creates a router relaying unknown targets to relay
func NewRouter(relay *Outbox, log *slog.Logger) *Router {
	return &Router{
		handlers: make(map[common.Address]Handler),
		relay:    relay,
		log:      log.With("component", "EffectRouter"),
	}
}

// Register routes effects addressed to target to h.
func (r *Router) Register(target common.Address, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[target] = h
}

// Perform dispatches one effect
func (r *Router) Perform(ctx context.Context, caller common.Address, effect domain.Effect) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	h, ok := r.handlers[effect.Target]
	r.mu.RUnlock()

	if !ok {
		r.log.Debug("relaying effect", "target", effect.Target, "caller", caller)
		return r.relay.Perform(ctx, caller, effect)
	}
	r.log.Debug("dispatching effect", "target", effect.Target, "caller", caller)
	return h.Handle(ctx, caller, effect)
}

// Ensure Router implements EffectPerformer
var _ usecase.EffectPerformer = (*Router)(nil)
