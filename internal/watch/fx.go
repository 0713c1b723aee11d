package watch

import "go.uber.org/fx"

var Module = fx.Module("watch",
	fx.Provide(NewWatcher),
)
