package bootstrap

import (
	fillRepo "github.com/tironinho/kronos-sub000/internal/infrastructure/questdb/fill"
	orderRepo "github.com/tironinho/kronos-sub000/internal/infrastructure/questdb/order"
	positionRepo "github.com/tironinho/kronos-sub000/internal/infrastructure/questdb/position"
)

// Repository holds the ledger database repositories. All nil when QuestDB is
// not configured.
type Repository struct {
	OrderRepository    orderRepo.OrderRepository
	FillRepository     fillRepo.FillRepository
	PositionRepository positionRepo.PositionRepository
}

// registerRepository registers the repositories.
func (b *Bootstrap) registerRepository() {
	if b.QuestDB == nil {
		return
	}
	b.Repository.OrderRepository = orderRepo.NewRepository(b.QuestDB)
	b.Repository.FillRepository = fillRepo.NewRepository(b.QuestDB)
	b.Repository.PositionRepository = positionRepo.NewRepository(b.QuestDB)
}
