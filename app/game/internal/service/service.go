// Package service 玩法服务：加载状态、调用纯引擎、在事务内落库。
// 会话锁与视图由 handler 负责，服务本身无会话状态（事件实例除外）。
package service

import (
	"context"

	"github.com/lk2023060901/ascend/app/game/internal/dao"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
)

// loadUser 读取玩家，未注册返回 NotRegistered
func loadUser(ctx context.Context, d *dao.DAO, userID, serverID string) (*model.User, error) {
	u, err := d.Users.Get(ctx, userID, serverID)
	if dao.IsNotFound(err) {
		return nil, errcode.NotRegistered(userID)
	}
	return u, err
}

// notFoundAs 把 ErrNotFound 转换为指定错误
func notFoundAs(err, as error) error {
	if dao.IsNotFound(err) {
		return as
	}
	return err
}
