package policy

import (
	"github.com/smallbiznis/expenso/internal/policy/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("policy.store",
	fx.Provide(repository.Provide),
)
