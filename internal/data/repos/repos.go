package repos

import (
	"github.com/yungbote/groupcart-backend/internal/data/repos/grouporder"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type GroupOrderRepo = grouporder.GroupOrderRepo

type Repos struct {
	GroupOrders GroupOrderRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		GroupOrders: grouporder.NewGroupOrderRepo(db, log),
	}
}
