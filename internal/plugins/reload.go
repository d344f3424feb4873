package plugins

import (
	"context"
	"path/filepath"

	"sentinel/internal/plugin"
)

const ReloadType = "reload"

// Reload asks the engine to reload the configuration whenever the
// Sentinelfile changes. Without watch rules it watches the loaded config.
type Reload struct {
	*plugin.Base
	request func()
}

func NewReload(spec plugin.Spec, deps Deps) (plugin.Plugin, error) {
	if len(spec.Rules) == 0 && deps.ConfigPath != "" {
		spec.Rules = []plugin.Rule{plugin.Glob(filepath.Base(deps.ConfigPath), nil)}
	}
	reload := &Reload{Base: plugin.NewBase(spec), request: deps.RequestReload}
	reload.Handle(plugin.TaskRunOnChanges, reload.runOnChanges)
	return reload, nil
}

func (r *Reload) runOnChanges(ctx context.Context, _ ...any) (any, error) {
	r.Hook(ctx, "reload_requested")
	r.request()
	return true, nil
}
