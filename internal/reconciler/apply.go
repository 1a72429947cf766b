package reconciler

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"grimm.is/routepin/internal/logging"
	"grimm.is/routepin/internal/privexec"
	"grimm.is/routepin/internal/resolve"
	"grimm.is/routepin/internal/routing"
	"grimm.is/routepin/internal/state"
)

func (e *Engine) addRoutes(ctx context.Context, logger *logging.Logger, op Operation, res *Result) {
	tokens := op.tokens()
	if len(tokens) == 0 {
		err := emptyInput()
		res.Errors = append(res.Errors, err)
		e.reportError("Add routes", err.Error())
		return
	}

	gw := e.currentGateway()
	st := e.State()
	aborted := false

	for _, token := range tokens {
		if aborted {
			res.fail(token, ErrAborted)
			continue
		}
		if routing.IsCatchAll(token) {
			e.reportItem("Add route", res.fail(token, ErrCatchAll))
			continue
		}
		if gw == "" {
			e.reportItem("Add route", res.fail(token, ErrNoGateway))
			continue
		}

		dest, err := e.destination(ctx, token)
		if err != nil {
			e.reportItem("Add route", res.fail(token, err))
			continue
		}

		if _, err := e.exec.Run(ctx, routing.AddRoute(dest, gw)); err != nil {
			e.reportItem("Add route", res.fail(dest, err))
			aborted = isCredentialError(err)
			continue
		}
		if !st.AddRoute(dest) {
			logger.Debug("destination already pinned", "destination", dest)
		}
		res.succeed(dest)
	}

	if len(res.Succeeded) == 0 {
		return
	}
	if !e.interrupted {
		// Otherwise the stored gateway still names where the old routes are.
		st.SetGateway(gw)
	}
	e.persist(st, res)
	e.reportInfo("Add routes", fmt.Sprintf("added %d route(s) via %s", len(res.Succeeded), gw))
	e.refresh(ctx, nil)
}

func (e *Engine) deleteRoutes(ctx context.Context, logger *logging.Logger, op Operation, res *Result) {
	tokens := op.tokens()
	if len(tokens) == 0 {
		err := emptyInput()
		res.Errors = append(res.Errors, err)
		e.reportError("Delete routes", err.Error())
		return
	}

	st := e.State()
	aborted := false

	for _, token := range tokens {
		if aborted {
			res.fail(token, ErrAborted)
			continue
		}
		if routing.IsCatchAll(token) {
			e.reportItem("Delete route", res.fail(token, ErrCatchAll))
			continue
		}

		if _, err := e.exec.Run(ctx, routing.DeleteRoute(token)); err != nil {
			e.reportItem("Delete route", res.fail(token, err))
			aborted = isCredentialError(err)
			continue
		}
		if removed, ok := st.RemoveRoute(token); ok {
			logger.Debug("unpinned", "destination", removed)
		}
		res.succeed(token)
	}

	if len(res.Succeeded) == 0 {
		return
	}
	e.persist(st, res)
	e.reportInfo("Delete routes", fmt.Sprintf("deleted %d route(s)", len(res.Succeeded)))
	e.refresh(ctx, nil)
}

// reanchor moves every pinned route to the observed gateway: all deletes
// first, in stored order, then all adds. An empty gateway only runs the
// deletes and keeps the stored gateway.
func (e *Engine) reanchor(ctx context.Context, logger *logging.Logger, op Operation, res *Result) {
	newGw := op.Gateway
	prev := e.currentGateway()
	e.setGateway(newGw)
	e.frontend.OnGatewayUpdated(e.CurrentGatewayDisplay())
	if prev != newGw {
		e.hub.EmitGatewayChanged(e.iface, prev, newGw)
	}

	st := e.State()
	switch {
	case !st.Anchored():
		logger.Info("no anchored routes, nothing to re-anchor", "gateway", newGw)
		e.refresh(ctx, nil)
		return
	case op.Initial && newGw == "":
		// Routes via a vanished gateway are gone from the table already.
		if !e.detached {
			logger.Info("no gateway at startup, waiting for one", "stored", st.GatewayString())
			e.detached = true
		}
		e.refresh(ctx, nil)
		return
	case newGw == "" && e.detached:
		logger.Debug("routes already detached", "stored", st.GatewayString())
		e.refresh(ctx, nil)
		return
	case st.GatewayString() == newGw && !e.detached && !e.interrupted:
		logger.Debug("routes already anchored to gateway", "gateway", newGw)
		e.refresh(ctx, nil)
		return
	}

	logger.Info("re-anchoring routes", "from", st.GatewayString(), "to", display(newGw), "routes", len(st.Routes))

	if !e.detached {
		for i, dest := range st.Routes {
			if _, err := e.exec.Run(ctx, routing.DeleteRoute(dest)); err != nil {
				e.reportItem("Re-anchor", res.fail(dest, fmt.Errorf("delete: %w", err)))
				if isCredentialError(err) {
					// Stored state is untouched; the next add or delete resumes.
					for _, rest := range st.Routes[i+1:] {
						res.fail(rest, ErrAborted)
					}
					e.interrupted = true
					return
				}
			}
		}
	}

	if newGw == "" {
		e.detached = true
		e.interrupted = false
		e.reportInfo("Re-anchor", fmt.Sprintf("gateway lost, removed %d route(s); waiting for a gateway", len(st.Routes)))
		return
	}

	e.detached = false
	e.interrupted = false
	st.SetGateway(newGw)
	for i, dest := range st.Routes {
		if _, err := e.exec.Run(ctx, routing.AddRoute(dest, newGw)); err != nil {
			e.reportItem("Re-anchor", res.fail(dest, fmt.Errorf("add: %w", err)))
			if isCredentialError(err) {
				for _, rest := range st.Routes[i+1:] {
					res.fail(rest, ErrAborted)
				}
				e.interrupted = true
				break
			}
			continue
		}
		res.succeed(dest)
	}

	e.persist(st, res)
	e.reportInfo("Re-anchor", fmt.Sprintf("re-anchored %d of %d route(s) via %s", len(res.Succeeded), len(st.Routes), newGw))
	e.refresh(ctx, nil)
}

// refresh publishes the live routes via the current gateway. res may be nil
// when refreshing as part of another operation.
func (e *Engine) refresh(ctx context.Context, res *Result) {
	gw := e.currentGateway()

	var lines []string
	if gw != "" && e.inspector != nil {
		entries, err := e.inspector.ListRoutesViaGateway(ctx, gw)
		if err != nil {
			e.reportError("Refresh routes", err.Error())
			if res != nil {
				res.Errors = append(res.Errors, err)
			}
			return
		}
		lines = routing.Render(entries)
	}

	e.mu.Lock()
	e.view = lines
	e.mu.Unlock()

	e.frontend.OnRouteViewUpdated(append([]string(nil), lines...))
	e.hub.EmitRouteView(gw, lines)
}

// persist commits st in memory and writes it out. A write failure is
// reported but the in-memory state is kept.
func (e *Engine) persist(st state.DesiredState, res *Result) {
	e.commit(st)
	if err := e.store.Save(st); err != nil {
		res.Errors = append(res.Errors, err)
		e.reportError("Save state", err.Error())
	}
}

// destination turns a token into a route destination. CIDR prefixes are
// used as given (masked); anything else is resolved to a host route.
func (e *Engine) destination(ctx context.Context, token string) (string, error) {
	if p, err := netip.ParsePrefix(token); err == nil {
		return p.Masked().String(), nil
	}
	addr, err := e.resolver.Resolve(ctx, token)
	if err != nil {
		return "", err
	}
	if addr.IsUnspecified() {
		return "", ErrCatchAll
	}
	return resolve.HostDestination(addr), nil
}

func (e *Engine) reportItem(context string, ie *ItemError) {
	e.reportError(context, ie.Error())
}

// reportError and reportInfo send a user-facing line to the front-end and
// the hub.
func (e *Engine) reportError(context, detail string) {
	e.frontend.ReportError(context, detail)
	e.hub.EmitMessage(true, context, detail)
}

func (e *Engine) reportInfo(context, detail string) {
	e.frontend.ReportInfo(context, detail)
	e.hub.EmitMessage(false, context, detail)
}

func isCredentialError(err error) bool {
	var ce *privexec.CredentialError
	return errors.As(err, &ce)
}

func display(gw string) string {
	if gw == "" {
		return "none"
	}
	return gw
}
