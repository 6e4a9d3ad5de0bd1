package app

import (
	"encoding/json"

	"github.com/ayusman/pointerzone/internal/hover"
	"github.com/ayusman/pointerzone/internal/log"
	"github.com/ayusman/pointerzone/internal/plugin"
)

// dispatchLoop runs the plugins bound to each queued event, in event order.
// It runs off the frame goroutine so a slow plugin never stalls frames.
func (a *App) dispatchLoop() {
	defer a.dispatchWG.Done()
	for ev := range a.events {
		a.dispatch(ev)
	}
}

func (a *App) dispatch(ev hover.Event) {
	if a.config.Store == nil {
		return
	}

	bindings, err := a.config.Store.Bindings().ListForEvent(ev.ZoneID, string(ev.Type))
	if err != nil {
		log.Error("[APP] loading bindings for %s %s: %v", ev.Type, ev.ZoneID, err)
		return
	}

	params, _ := json.Marshal(map[string]int64{"timestamp": ev.Timestamp.UnixMilli()})

	for _, b := range bindings {
		p, err := a.pluginMgr.Get(b.PluginName)
		if err != nil {
			log.Warn("[APP] binding %s: plugin %q: %v", b.ID, b.PluginName, err)
			continue
		}
		if !p.Manifest.Supports(b.ActionName) {
			log.Warn("[APP] binding %s: plugin %q has no action %q", b.ID, b.PluginName, b.ActionName)
			continue
		}

		req := &plugin.Request{
			Event:  string(ev.Type),
			Zone:   ev.ZoneID,
			Action: b.ActionName,
			Config: b.Config,
			Params: params,
		}
		resp, err := a.pluginExec.Execute(a.ctx, p, req)
		switch {
		case err != nil:
			log.Error("[APP] %s/%s for %s %s: %v", b.PluginName, b.ActionName, ev.Type, ev.ZoneID, err)
		case !resp.Success:
			log.Warn("[APP] %s/%s for %s %s failed: %s", b.PluginName, b.ActionName, ev.Type, ev.ZoneID, resp.Error)
		default:
			log.Debug("[APP] %s/%s ran for %s %s", b.PluginName, b.ActionName, ev.Type, ev.ZoneID)
		}
	}
}
