package approver

import (
	"github.com/smallbiznis/expenso/internal/approver/repository"
	"github.com/smallbiznis/expenso/internal/approver/service"
	"go.uber.org/fx"
)

var Module = fx.Module("approver.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
