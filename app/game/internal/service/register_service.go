package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/lk2023060901/ascend/app/game/internal/dao"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/app/game/internal/tables"
	"github.com/lk2023060901/ascend/pkg/logger"
)

var ideologyPattern = regexp.MustCompile(`^[A-Za-z0-9 ]{1,24}$`)

// Genders 注册可选性别
var Genders = []string{"male", "female"}

// Registration 注册流程收集的信息
type Registration struct {
	UserID   string
	ServerID string
	Name     string
	Gender   string
	Portrait string
	Ideology string
}

// RegisterService 注册：建档、发放初始物资、加入或创立教派
type RegisterService struct {
	logger    logger.Logger
	dao       *dao.DAO
	ideology  *IdeologyService
	portraits []tables.Portrait
	now       func() time.Time
}

func NewRegisterService(l logger.Logger, d *dao.DAO, ideology *IdeologyService, portraits []tables.Portrait) *RegisterService {
	return &RegisterService{
		logger:    l.Named("service.register"),
		dao:       d,
		ideology:  ideology,
		portraits: portraits,
		now:       time.Now,
	}
}

// IsRegistered 是否已注册
func (s *RegisterService) IsRegistered(ctx context.Context, userID, serverID string) (bool, error) {
	return s.dao.Users.Exists(ctx, userID, serverID)
}

// ValidGender 性别是否合法
func ValidGender(g string) bool {
	for _, v := range Genders {
		if v == g {
			return true
		}
	}
	return false
}

// Portraits 按性别筛选头像
func (s *RegisterService) Portraits(gender string) []tables.Portrait {
	var out []tables.Portrait
	for _, p := range s.portraits {
		if strings.EqualFold(p.Sex, gender) {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeIdeology 校验教派名：字母数字与空格，1 到 24 个字符
func NormalizeIdeology(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !ideologyPattern.MatchString(name) {
		return "", errcode.InvalidInput("ideology names use letters, digits and spaces, at most 24 characters")
	}
	return name, nil
}

// Register 写入玩家与各玩法初始档案，返回玩家与是否新创立教派
func (s *RegisterService) Register(ctx context.Context, r Registration) (*model.User, bool, error) {
	// 1. 参数
	if !ValidGender(r.Gender) {
		return nil, false, errcode.InvalidInput("unknown gender %q", r.Gender)
	}
	name, err := NormalizeIdeology(r.Ideology)
	if err != nil {
		return nil, false, err
	}
	exists, err := s.IsRegistered(ctx, r.UserID, r.ServerID)
	if err != nil {
		return nil, false, err
	}
	if exists {
		return nil, false, errcode.InvalidInput("you are already registered")
	}

	// 2. 建档
	u := model.NewUser(r.UserID, r.ServerID, r.Name, r.Gender, r.Portrait, name, s.now())
	var (
		ideology *model.Ideology
		founded  bool
	)
	err = s.dao.WithTx(ctx, func(ctx context.Context) error {
		if err := s.dao.Users.Create(ctx, u); err != nil {
			return err
		}
		for _, sk := range model.Skills {
			if err := s.dao.Skills.Create(ctx, r.UserID, r.ServerID, sk); err != nil {
				return err
			}
		}
		if err := s.dao.Delve.Create(ctx, model.NewDelveProfile(r.UserID, r.ServerID)); err != nil {
			return err
		}
		if err := s.dao.Slayer.Create(ctx, r.UserID, r.ServerID); err != nil {
			return err
		}

		// 3. 教派
		var err error
		ideology, founded, err = s.ideology.join(ctx, r.UserID, r.ServerID, name)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	s.ideology.sync(ctx, ideology)

	s.logger.InfoContext(ctx, "user registered",
		"user_id", r.UserID,
		"server_id", r.ServerID,
		"ideology", name,
		"founded", founded,
	)
	return u, founded, nil
}
