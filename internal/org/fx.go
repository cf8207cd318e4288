package org

import (
	"github.com/smallbiznis/expenso/internal/org/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("org.store",
	fx.Provide(repository.Provide),
)
