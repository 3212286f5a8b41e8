package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// EmergencyController owns the pause flags of the governor and the
// timelock. Each surface keeps its own flag.
type EmergencyController struct {
	holder *StateHolder
	caps   CapabilityRegistry
	events EventSink
	log    *slog.Logger
}

// NewEmergencyController creates a new emergency controller
func NewEmergencyController(holder *StateHolder, caps CapabilityRegistry, events EventSink, log *slog.Logger) *EmergencyController {
	return &EmergencyController{
		holder: holder,
		caps:   caps,
		events: events,
		log:    log.With("component", "EmergencyController"),
	}
}

// SetEmergencyMode toggles governor emergency mode. Enabling it also
// engages the governor pause; disabling it leaves the pause in place until
// an explicit unpause.
func (c *EmergencyController) SetEmergencyMode(ctx context.Context, caller common.Address, enabled bool) error {
	var events []domain.Event
	err := c.holder.Update(func(s *models.State, now uint64) error {
		if err := requireCapability(c.caps, caller, domain.CapabilityEmergency); err != nil {
			return err
		}
		ps := &s.GovernorPause
		if ps.Emergency == enabled {
			return nil
		}
		ps.Emergency = enabled
		events = append(events, domain.Event{
			Kind:    domain.EventEmergencyModeChanged,
			Surface: domain.SurfaceGovernor,
			At:      now,
			Actor:   caller,
			Attrs:   attrs("enabled", strconv.FormatBool(enabled)),
		})
		if enabled && !ps.Paused {
			ps.Paused = true
			events = append(events, pauseEvent(domain.EventPaused, domain.SurfaceGovernor, now, caller))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if enabled {
		c.log.Warn("emergency mode enabled", "caller", caller)
	} else {
		c.log.Info("emergency mode disabled", "caller", caller)
	}
	publish(ctx, c.events, c.log, events)
	return nil
}

// Pause engages the pause flag of surface. Pausing twice is a no-op.
func (c *EmergencyController) Pause(ctx context.Context, caller common.Address, surface domain.Surface) error {
	return c.setPaused(ctx, caller, surface, true)
}

// Unpause clears the pause flag of surface. The governor cannot be
// unpaused while emergency mode is on.
func (c *EmergencyController) Unpause(ctx context.Context, caller common.Address, surface domain.Surface) error {
	return c.setPaused(ctx, caller, surface, false)
}

func (c *EmergencyController) setPaused(ctx context.Context, caller common.Address, surface domain.Surface, paused bool) error {
	var events []domain.Event
	err := c.holder.Update(func(s *models.State, now uint64) error {
		if err := requireCapability(c.caps, caller, domain.CapabilityEmergency); err != nil {
			return err
		}
		ps, err := pauseStateOf(s, surface)
		if err != nil {
			return err
		}
		if !paused && ps.Emergency {
			return domain.ErrEmergencyModeActive
		}
		if ps.Paused == paused {
			return nil
		}
		ps.Paused = paused

		kind := domain.EventUnpaused
		if paused {
			kind = domain.EventPaused
		}
		events = append(events, pauseEvent(kind, surface, now, caller))
		return nil
	})
	if err != nil {
		return err
	}

	c.log.Info("pause flag changed", "surface", surface, "paused", paused, "caller", caller)
	publish(ctx, c.events, c.log, events)
	return nil
}

// Status returns both pause states.
func (c *EmergencyController) Status() (governor, timelock domain.PauseState) {
	_ = c.holder.View(func(s *models.State, _ uint64) error {
		governor, timelock = s.GovernorPause, s.TimelockPause
		return nil
	})
	return governor, timelock
}

func pauseStateOf(s *models.State, surface domain.Surface) (*domain.PauseState, error) {
	switch surface {
	case domain.SurfaceGovernor:
		return &s.GovernorPause, nil
	case domain.SurfaceTimelock:
		return &s.TimelockPause, nil
	}
	return nil, fmt.Errorf("%w: surface %q has no pause flag", domain.ErrInvalidParams, surface)
}

func pauseEvent(kind domain.EventKind, surface domain.Surface, now uint64, caller common.Address) domain.Event {
	return domain.Event{Kind: kind, Surface: surface, At: now, Actor: caller}
}

// governorPaused is consulted first by every blocked governor entry point.
func governorPaused(s *models.State) error {
	if s.GovernorPause.Paused {
		return domain.ErrGovernancePaused
	}
	return nil
}

func timelockPaused(s *models.State) error {
	if s.TimelockPause.Paused {
		return domain.ErrTimelockEmergencyPaused
	}
	return nil
}

func requireCapability(caps CapabilityRegistry, account common.Address, capability domain.Capability) error {
	if !caps.HasCapability(account, capability) {
		return &domain.CapabilityError{Account: account, Capability: capability}
	}
	return nil
}
