package dao

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/database"
)

// EventDAO event_channels 表访问
type EventDAO struct {
	base
}

// AddChannel 绑定事件频道，重复绑定返回 false
func (d *EventDAO) AddChannel(ctx context.Context, ch model.EventChannel) (bool, error) {
	var n int64
	exists := d.sb.Select("COUNT(*)").From("event_channels").
		Where(squirrel.Eq{"server_id": ch.ServerID, "channel_id": ch.ChannelID})
	if err := d.scanOne(ctx, exists, &n); err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	q := d.sb.Insert("event_channels").
		Columns("server_id", "channel_id").
		Values(ch.ServerID, ch.ChannelID)
	if _, err := d.exec(ctx, "event_add_channel", q); err != nil {
		return false, err
	}
	return true, nil
}

// Channels 全部已绑定频道
func (d *EventDAO) Channels(ctx context.Context) ([]model.EventChannel, error) {
	var out []model.EventChannel
	q := d.sb.Select("server_id", "channel_id").From("event_channels").OrderBy("server_id", "channel_id")
	err := d.scanAll(ctx, q, func(rows database.Rows) error {
		var ch model.EventChannel
		if err := rows.Scan(&ch.ServerID, &ch.ChannelID); err != nil {
			return err
		}
		out = append(out, ch)
		return nil
	})
	return out, err
}
