package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bissquit/alerty/internal/domain"
	"github.com/bissquit/alerty/internal/pkg/ctxlog"
)

// Dispatcher shows best-effort system notifications for alerts.
// Delivery problems are logged and never returned to the caller.
type Dispatcher struct {
	platform   Platform
	background BackgroundSurface
	assets     Assets

	mu         sync.RWMutex
	supported  bool
	permission domain.Permission

	prompting atomic.Bool
}

// NewDispatcher probes the platform once and records its capability.
// background may be nil.
func NewDispatcher(ctx context.Context, platform Platform, background BackgroundSurface, assets Assets) *Dispatcher {
	capability := platform.Probe(ctx)
	if !capability.Permission.IsValid() {
		capability.Permission = domain.PermissionDefault
	}

	ctxlog.FromContext(ctx).Info("notification capability probed",
		"supported", capability.Supported,
		"permission", capability.Permission,
		"background", background != nil,
	)

	d := &Dispatcher{
		platform:   platform,
		background: background,
		assets:     assets,
		supported:  capability.Supported,
		permission: capability.Permission,
	}
	recordPermission(capability.Permission)
	return d
}

// QueryCapability returns the tracked capability.
func (d *Dispatcher) QueryCapability() domain.Capability {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return domain.Capability{Supported: d.supported, Permission: d.permission}
}

// RequestPermission prompts the user and tracks the answer.
// On failure the tracked state is left unchanged.
func (d *Dispatcher) RequestPermission(ctx context.Context) domain.Permission {
	logger := ctxlog.FromContext(ctx)

	current := d.QueryCapability()
	if !current.Supported {
		logger.Debug("permission request skipped, notifications unsupported")
		return current.Permission
	}

	permission, err := d.platform.RequestPermission(ctx)
	if err != nil {
		logger.Warn("notification permission request failed", "error", err)
		return current.Permission
	}
	if !permission.IsValid() {
		logger.Warn("platform returned unknown permission", "permission", permission)
		return current.Permission
	}

	d.ObservePermission(permission)
	logger.Info("notification permission updated", "permission", permission)
	return permission
}

// PromptIfUndecided requests permission when notifications are supported and
// the user has not answered yet. Overlapping calls share a single prompt.
func (d *Dispatcher) PromptIfUndecided(ctx context.Context) {
	current := d.QueryCapability()
	if !current.Supported || current.Permission != domain.PermissionDefault {
		return
	}
	if !d.prompting.CompareAndSwap(false, true) {
		return
	}
	defer d.prompting.Store(false)

	d.RequestPermission(ctx)
}

// ObservePermission records a permission change reported by the platform
// outside of RequestPermission. Unknown values are ignored.
func (d *Dispatcher) ObservePermission(permission domain.Permission) {
	if !permission.IsValid() {
		return
	}

	d.mu.Lock()
	d.permission = permission
	d.mu.Unlock()

	recordPermission(permission)
}

// Dispatch shows a notification for the alert when the device allows it.
func (d *Dispatcher) Dispatch(ctx context.Context, alert domain.Alert, settings domain.NotificationSettings) {
	logger := ctxlog.FromContext(ctx).With("alert_id", alert.ID)

	if !d.QueryCapability().CanNotify() {
		logger.Debug("notification skipped, not permitted")
		recordDispatch(pathNone, outcomeSkipped)
		return
	}

	payload, err := BuildPayload(alert, settings, d.assets)
	if err != nil {
		logger.Warn("failed to build notification payload", "error", err)
		d.lastResort(ctx, minimalPayload(alert))
		return
	}

	path, err := d.deliver(ctx, payload)
	if err != nil {
		logger.Log(ctx, failureLevel(err), "notification delivery failed, retrying directly", "path", path, "error", err)
		recordDispatch(path, outcomeFailed)
		d.lastResort(ctx, payload)
		return
	}

	logger.Debug("notification delivered", "path", path)
	recordDispatch(path, outcomeDelivered)
}

func (d *Dispatcher) deliver(ctx context.Context, payload Payload) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delivery panicked: %v", r)
		}
	}()

	if d.background != nil && d.background.Ready(ctx) {
		return pathBackground, d.background.Show(ctx, payload)
	}
	return pathDirect, d.platform.Display(ctx, payload)
}

func (d *Dispatcher) lastResort(ctx context.Context, payload Payload) {
	logger := ctxlog.FromContext(ctx).With("alert_id", payload.Tag)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("last resort notification panicked", "panic", r)
			recordDispatch(pathLastResort, outcomeFailed)
		}
	}()

	if err := d.platform.Display(ctx, payload); err != nil {
		logger.Error("last resort notification failed", "error", err)
		recordDispatch(pathLastResort, outcomeFailed)
		return
	}
	recordDispatch(pathLastResort, outcomeDelivered)
}

// retryable is implemented by delivery errors that know whether a later
// attempt could succeed.
type retryable interface {
	IsRetryable() bool
}

// failureLevel logs permanent delivery failures as errors and everything
// else as warnings.
func failureLevel(err error) slog.Level {
	var r retryable
	if errors.As(err, &r) && !r.IsRetryable() {
		return slog.LevelError
	}
	return slog.LevelWarn
}
