package push

import "go.uber.org/fx"

var Module = fx.Module("push",
	fx.Provide(
		NewHub,
		func(h *Hub) Emitter { return h },
	),
)
