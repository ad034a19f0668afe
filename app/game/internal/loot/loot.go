// Package loot 装备生成与强化。
package loot

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/app/game/internal/tables"
	"github.com/lk2023060901/ascend/pkg/random"
)

// RuneChance 允许掉落符文时，装备被替换为潜能符文的概率
const RuneChance = 0.05

type axis struct {
	stat    model.Stat
	weight  float64
	divisor float64
}

// 每种装备的属性轴与抽取权重
var axisTables = map[model.ItemKind][]axis{
	model.KindWeapon: {
		{model.StatAttack, 40, 10},
		{model.StatDefence, 40, 10},
		{model.StatRarity, 20, 5},
	},
	model.KindAccessory: {
		{model.StatAttack, 25, 10},
		{model.StatDefence, 25, 10},
		{model.StatRarity, 20, 5},
		{model.StatWard, 15, 20},
		{model.StatCrit, 15, 20},
	},
	model.KindArmor: {
		{model.StatBlock, 40, 20},
		{model.StatEvasion, 30, 20},
		{model.StatWard, 30, 20},
	},
	model.KindGlove: {
		{model.StatAttack, 30, 10},
		{model.StatDefence, 30, 10},
		{model.StatWard, 20, 20},
		{model.StatBlock, 20, 20},
	},
	model.KindBoot: {
		{model.StatAttack, 30, 10},
		{model.StatDefence, 30, 10},
		{model.StatWard, 20, 20},
		{model.StatEvasion, 20, 20},
	},
	model.KindHelmet: {
		{model.StatDefence, 40, 10},
		{model.StatWard, 30, 20},
		{model.StatBlock, 30, 20},
	},
}

// Result 一次生成的结果：装备或一枚潜能符文
type Result struct {
	Item *model.Item
	Rune bool
}

// Generator 装备生成器
type Generator struct {
	names map[model.ItemKind]tables.NameParts
	axes  map[model.ItemKind]*random.Weighted[axis]
}

// NewGenerator 创建生成器，每种装备都必须有命名词库
func NewGenerator(names map[model.ItemKind]tables.NameParts) (*Generator, error) {
	g := &Generator{
		names: names,
		axes:  make(map[model.ItemKind]*random.Weighted[axis], len(axisTables)),
	}
	for _, kind := range model.ItemKinds {
		if _, ok := names[kind]; !ok {
			return nil, errors.Newf("no name lists for %s", kind)
		}
		rows := axisTables[kind]
		weights := make([]float64, len(rows))
		for i, a := range rows {
			weights[i] = a.weight
		}
		w, err := random.NewWeighted(rows, weights)
		if err != nil {
			return nil, errors.Wrapf(err, "axis table for %s", kind)
		}
		g.axes[kind] = w
	}
	return g, nil
}

// Generate 生成指定种类与等级的装备，归属与 ID 由调用方填写
func (g *Generator) Generate(src random.Source, kind model.ItemKind, level int, dropRune bool) (Result, error) {
	axes, ok := g.axes[kind]
	if !ok {
		return Result{}, errors.Newf("unknown item kind %q", kind)
	}

	// 1. 符文替换
	if dropRune && random.Chance(src, RuneChance) {
		return Result{Rune: true}, nil
	}

	// 2. 名称 = 前缀 + 基础名 + 后缀
	parts := g.names[kind]
	name := random.Choice(src, parts.Prefixes) + " " +
		random.Choice(src, parts.Bases) + " " +
		random.Choice(src, parts.Suffixes)

	item := &model.Item{
		Kind:               kind,
		Name:               name,
		Level:              level,
		Passive:            model.PassiveNone,
		PotentialRemaining: model.InitialPotential,
	}

	// 3. 属性轴与数值
	a := axes.Pick(src)
	item.AddStat(a.stat, Magnitude(src, level, a.divisor))

	return Result{Item: item}, nil
}

// Magnitude 属性数值：item_level 乘以 [0.8,1.2) 的浮动再除以轴系数，至少为 1
func Magnitude(src random.Source, level int, divisor float64) int64 {
	u := random.Uniform(src, 0.8, 1.2)
	v := int64(math.Floor(float64(level) * u / divisor))
	return max(v, 1)
}
