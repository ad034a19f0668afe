// Package tables 游戏只读数据表：怪物图鉴、珍奇掉落表、头像与装备命名词库。
package tables

import (
	"embed"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/gameconfig"
	"github.com/lk2023060901/ascend/pkg/logger"
)

// 内置默认表，资源目录缺文件时使用
//
//go:embed defaults/*
var defaults embed.FS

const (
	MonstersFile = "monsters.csv"
	CuriosFile   = "curios.csv"
	ProfilesFile = "profiles.csv"
	NamesFile    = "names.yaml"
)

// Monster 怪物图鉴条目
type Monster struct {
	Name    string
	Species string
	Level   int
}

// CurioReward 珍奇掉落表条目，权重无需归一
type CurioReward struct {
	Reward string
	Weight float64
}

// Portrait 注册可选头像
type Portrait struct {
	Sex string
	URL string
}

// NameParts 装备名称词库
type NameParts struct {
	Prefixes []string `yaml:"prefixes"`
	Bases    []string `yaml:"bases"`
	Suffixes []string `yaml:"suffixes"`
}

// Tables 全部数据表
type Tables struct {
	Monsters  []Monster
	Curios    []CurioReward
	Portraits []Portrait
	Names     map[model.ItemKind]NameParts
}

// Load 通过 loader 加载全部数据表
func Load(loader *gameconfig.Loader) (*Tables, error) {
	t := &Tables{}

	// 1. 怪物图鉴
	recs, err := loader.CSV(MonstersFile, mustDefault(MonstersFile))
	if err != nil {
		return nil, err
	}
	if t.Monsters, err = parseMonsters(recs); err != nil {
		return nil, err
	}

	// 2. 珍奇掉落表
	if recs, err = loader.CSV(CuriosFile, mustDefault(CuriosFile)); err != nil {
		return nil, err
	}
	if t.Curios, err = parseCurios(recs); err != nil {
		return nil, err
	}

	// 3. 头像
	if recs, err = loader.CSV(ProfilesFile, mustDefault(ProfilesFile)); err != nil {
		return nil, err
	}
	t.Portraits = parsePortraits(recs)

	// 4. 命名词库
	names := map[string]NameParts{}
	if err := loader.YAML(NamesFile, &names, mustDefault(NamesFile)); err != nil {
		return nil, err
	}
	if t.Names, err = parseNames(names); err != nil {
		return nil, err
	}

	return t, nil
}

// Defaults 只使用内置表
func Defaults() *Tables {
	loader, err := gameconfig.NewLoader(nil, logger.NewNoop())
	if err != nil {
		panic(err)
	}
	t, err := Load(loader)
	if err != nil {
		panic(err)
	}
	return t
}

func mustDefault(name string) []byte {
	data, err := defaults.ReadFile("defaults/" + name)
	if err != nil {
		panic(err)
	}
	return data
}

func parseMonsters(recs []gameconfig.Record) ([]Monster, error) {
	out := make([]Monster, 0, len(recs))
	for i, r := range recs {
		level, err := strconv.Atoi(strings.TrimSpace(r["level"]))
		if err != nil {
			return nil, errors.Wrapf(err, "%s row %d: bad level", MonstersFile, i+1)
		}
		species := strings.ToLower(strings.TrimSpace(r["species"]))
		if species == "" {
			return nil, errors.Newf("%s row %d: empty species", MonstersFile, i+1)
		}
		out = append(out, Monster{Name: strings.TrimSpace(r["name"]), Species: species, Level: level})
	}
	if len(out) == 0 {
		return nil, errors.Newf("%s is empty", MonstersFile)
	}
	return out, nil
}

func parseCurios(recs []gameconfig.Record) ([]CurioReward, error) {
	out := make([]CurioReward, 0, len(recs))
	for i, r := range recs {
		w, err := strconv.ParseFloat(strings.TrimSpace(r["weight"]), 64)
		if err != nil || w < 0 {
			return nil, errors.Newf("%s row %d: bad weight %q", CuriosFile, i+1, r["weight"])
		}
		out = append(out, CurioReward{Reward: strings.TrimSpace(r["reward"]), Weight: w})
	}
	return out, nil
}

func parsePortraits(recs []gameconfig.Record) []Portrait {
	out := make([]Portrait, 0, len(recs))
	for _, r := range recs {
		out = append(out, Portrait{
			Sex: strings.ToLower(strings.TrimSpace(r["sex"])),
			URL: strings.TrimSpace(r["url"]),
		})
	}
	return out
}

func parseNames(raw map[string]NameParts) (map[model.ItemKind]NameParts, error) {
	out := make(map[model.ItemKind]NameParts, len(raw))
	for k, parts := range raw {
		kind, ok := model.ParseItemKind(k)
		if !ok {
			return nil, errors.Newf("%s: unknown item kind %q", NamesFile, k)
		}
		if len(parts.Prefixes) == 0 || len(parts.Bases) == 0 || len(parts.Suffixes) == 0 {
			return nil, errors.Newf("%s: %s word lists must not be empty", NamesFile, k)
		}
		out[kind] = parts
	}
	for _, kind := range model.ItemKinds {
		if _, ok := out[kind]; !ok {
			return nil, errors.Newf("%s: missing word lists for %s", NamesFile, kind)
		}
	}
	return out, nil
}

// PortraitsFor 按性别筛选头像
func (t *Tables) PortraitsFor(sex string) []Portrait {
	sex = strings.ToLower(sex)
	var out []Portrait
	for _, p := range t.Portraits {
		if p.Sex == sex {
			out = append(out, p)
		}
	}
	return out
}

// MonstersBetween 等级在 [lo, hi] 内的怪物
func (t *Tables) MonstersBetween(lo, hi int) []Monster {
	var out []Monster
	for _, m := range t.Monsters {
		if m.Level >= lo && m.Level <= hi {
			out = append(out, m)
		}
	}
	return out
}

// MonstersOf 某物种的全部怪物
func (t *Tables) MonstersOf(species string) []Monster {
	var out []Monster
	for _, m := range t.Monsters {
		if m.Species == species {
			out = append(out, m)
		}
	}
	return out
}
