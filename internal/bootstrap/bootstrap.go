package bootstrap

import (
	"github.com/tironinho/kronos-sub000/pkg/config"
	"github.com/tironinho/kronos-sub000/pkg/logger"
	"github.com/tironinho/kronos-sub000/pkg/questdb"
	"github.com/tironinho/kronos-sub000/pkg/redis"
)

// Bootstrap wires the engine together: repositories over the infrastructure
// clients, then usecases over the repositories. No component is a singleton;
// everything hangs off this container.
type Bootstrap struct {
	Config     *config.Config
	Logger     logger.Interface
	Repository Repository
	Usecase    Usecase

	QuestDB questdb.Client
	Redis   redis.Client
}

// BootstrapConfig carries the infrastructure handles into Init. QuestDB and
// Redis may be nil; persistence is then disabled.
type BootstrapConfig struct {
	Config  *config.Config
	Logger  logger.Interface
	QuestDB questdb.Client
	Redis   redis.Client
}

// Init initializes the container.
func (b *Bootstrap) Init(cfg BootstrapConfig) Bootstrap {
	b.Config = cfg.Config
	b.Logger = cfg.Logger
	b.QuestDB = cfg.QuestDB
	b.Redis = cfg.Redis

	b.registerRepository()
	b.registerUsecase()

	return *b
}
