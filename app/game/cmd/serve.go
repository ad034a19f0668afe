package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lk2023060901/ascend/app/game/internal/adapter"
	"github.com/lk2023060901/ascend/app/game/internal/curio"
	"github.com/lk2023060901/ascend/app/game/internal/dao"
	"github.com/lk2023060901/ascend/app/game/internal/handler"
	"github.com/lk2023060901/ascend/app/game/internal/loot"
	"github.com/lk2023060901/ascend/app/game/internal/manager"
	"github.com/lk2023060901/ascend/app/game/internal/metrics"
	"github.com/lk2023060901/ascend/app/game/internal/service"
	"github.com/lk2023060901/ascend/app/game/internal/tables"
	"github.com/lk2023060901/ascend/pkg/app"
	"github.com/lk2023060901/ascend/pkg/database"
	"github.com/lk2023060901/ascend/pkg/database/postgres"
	"github.com/lk2023060901/ascend/pkg/database/redis"
	"github.com/lk2023060901/ascend/pkg/database/sqlite"
	"github.com/lk2023060901/ascend/pkg/gameconfig"
	"github.com/lk2023060901/ascend/pkg/idgen"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/lk2023060901/ascend/pkg/prometheus"
	"github.com/lk2023060901/ascend/pkg/random"
	"github.com/lk2023060901/ascend/pkg/scheduler"
)

// openDB 按 driver 打开数据库
func openDB(ctx context.Context, cfg *DatabaseConfig) (database.DB, func() error, error) {
	switch cfg.Driver {
	case "postgres":
		c, err := postgres.New(ctx, &cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		c, err := sqlite.New(ctx, &cfg.SQLite)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	}
}

// schedulerServer 让调度器参与应用生命周期
type schedulerServer struct {
	s *scheduler.Scheduler
}

func (s schedulerServer) Start(ctx context.Context) error {
	s.s.Start()
	<-ctx.Done()
	return nil
}

func (s schedulerServer) Stop() error {
	<-s.s.Stop().Done()
	s.s.Release()
	return nil
}

// serve 组装全部组件并运行，直到输入结束或收到退出信号
func serve(ctx context.Context, cfg *Config, l logger.Logger) error {
	base := app.NewBaseApp(app.WithLogger(l), app.WithName("ascend"), app.WithID(fmt.Sprintf("ascend-%d", cfg.Game.NodeID)))

	// 1. 指标
	prom, err := prometheus.New(&cfg.Prometheus, l)
	if err != nil {
		return fmt.Errorf("prometheus: %w", err)
	}
	base.AppendCloser(prom)
	gm, err := metrics.New(&cfg.Metrics)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := gm.Register(prom.Registerer()); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	reporter, err := metrics.NewReporter(&cfg.Metrics.Reporter, gm, l)
	if err != nil {
		return err
	}

	// 2. 存储
	db, closeDB, err := openDB(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	base.AppendCloser(app.CloserFunc(closeDB))
	if _, err := dao.Migrate(ctx, db, l); err != nil {
		return err
	}
	d := dao.New(db, l, gm)

	var (
		rdb   *redis.Client
		cache *dao.CacheDAO
	)
	if cfg.Redis != nil {
		if rdb, err = redis.NewClient(cfg.Redis); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		base.AppendCloser(rdb)
		if err := rdb.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		cache = dao.NewCacheDAO(rdb, l, gm)
	}

	// 3. 数据表与随机源
	loader, err := gameconfig.NewLoader(os.DirFS(cfg.Game.Assets), l)
	if err != nil {
		return err
	}
	tbl, err := tables.Load(loader)
	if err != nil {
		return fmt.Errorf("load tables: %w", err)
	}
	curios, err := curio.NewTable(tbl.Curios)
	if err != nil {
		return err
	}
	gen, err := loot.NewGenerator(tbl.Names)
	if err != nil {
		return err
	}
	ids, err := idgen.NewSonyflake(cfg.Game.NodeID)
	if err != nil {
		return err
	}
	var src *random.Rand
	if cfg.Game.Seed != 0 {
		src = random.New(cfg.Game.Seed)
	} else if src, err = random.NewFromCrypto(); err != nil {
		return err
	}

	// 4. 管理器与服务
	sessions := manager.NewSessionManager(l, rdb, manager.DefaultMirrorTTL, gm)
	broadcasts, err := manager.NewBroadcastManager(l, cfg.Game.BroadcastWorkers)
	if err != nil {
		return err
	}
	base.AppendCloser(broadcasts)

	invCap := cfg.Limits.InventoryCap
	ideology := service.NewIdeologyService(l, d, cache, src, gm)
	events := service.NewEventService(l, d, cache, broadcasts, src, gm, cfg.Events.EventConfig)
	svc := handler.Services{
		Register: service.NewRegisterService(l, d, ideology, tbl.Portraits),
		Profile:  service.NewProfileService(l, d, invCap),
		Curio:    service.NewCurioService(l, d, curios, gen, ids, src, gm, invCap),
		Delve:    service.NewDelveService(l, d, src, gm),
		Duel:     service.NewDuelService(l, d, src, gm),
		Slayer:   service.NewSlayerService(l, d, tbl.Monsters, src),
		Ideology: ideology,
		Transfer: service.NewTransferService(l, d, invCap),
		Item:     service.NewItemService(l, d, src),
		Event:    events,
	}
	ctrl := handler.New(l, &cfg.Controller, svc, sessions, broadcasts, gm)
	base.AppendCloser(app.CloserFunc(func() error { ctrl.Close(); return nil }))

	// 5. 定时事件
	sched, err := scheduler.New(&cfg.Scheduler, scheduler.WithLogger(l))
	if err != nil {
		return err
	}
	if _, err := sched.AddFunc("event_tick", cfg.Events.Spec, func() error {
		_, err := events.Tick(context.Background())
		return err
	}); err != nil {
		return fmt.Errorf("schedule events: %w", err)
	}

	// 6. 运行
	base.AppendServer(
		adapter.NewConsole(l, ctrl, os.Stdin, os.Stdout),
		schedulerServer{s: sched},
		reporter,
	)
	return base.Run(ctx)
}
