package entitlement

import (
	"go.uber.org/fx"

	"github.com/scribehq/scribe/internal/entitlement/service"
)

var Module = fx.Module("entitlement.resolver",
	fx.Provide(service.NewResolver),
)
