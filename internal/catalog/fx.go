package catalog

import (
	"go.uber.org/fx"

	"github.com/scribehq/scribe/internal/catalog/service"
)

var Module = fx.Module("catalog.service",
	fx.Provide(service.NewService),
)
