// Package curio 珍奇开启：按掉落表加权抽取并按奖励键聚合。
// 奖励的落地（装备、符文、金币、采集材料）由 service 层在一个事务内完成。
package curio

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/app/game/internal/tables"
	"github.com/lk2023060901/ascend/pkg/random"
)

// Route 奖励落地方式
type Route int

const (
	RouteItem Route = iota + 1
	RouteRune
	RouteGold
	RouteSkill
)

// ItemLevel 珍奇产出装备的等级
const ItemLevel = 100

// SkillRolls 每个采集奖励调用产出计算的次数
const SkillRolls = 5

// Reward 解析后的掉落表条目
type Reward struct {
	Key    string
	Route  Route
	Kind   model.ItemKind // RouteItem
	Column model.Column   // RouteRune
	Gold   int64          // RouteGold，单个奖励的金币数
	Skill  model.Skill    // RouteSkill
}

var (
	itemPattern = regexp.MustCompile(`^Level (\d+) (\w+)$`)
	goldPattern = regexp.MustCompile(`^(\d+)k Gold$`)
)

var runeColumns = map[string]model.Column{
	"Refinement": model.ColRefinementRunes,
	"Potential":  model.ColPotentialRunes,
	"Imbuing":    model.ColImbueRunes,
	"Shattering": model.ColShatterRunes,
}

var skillRewards = map[string]model.Skill{
	"Ore":  model.SkillMining,
	"Wood": model.SkillWoodcutting,
	"Fish": model.SkillFishing,
}

// ParseReward 解析掉落表的奖励键
func ParseReward(key string) (Reward, error) {
	r := Reward{Key: key}

	if m := itemPattern.FindStringSubmatch(key); m != nil {
		kind, ok := model.ParseItemKind(m[2])
		if !ok {
			return r, errors.Newf("unknown item category in reward %q", key)
		}
		r.Route, r.Kind = RouteItem, kind
		return r, nil
	}

	if name, ok := strings.CutPrefix(key, "Rune of "); ok {
		col, known := runeColumns[name]
		if !known {
			return r, errors.Newf("unknown rune in reward %q", key)
		}
		r.Route, r.Column = RouteRune, col
		return r, nil
	}

	if m := goldPattern.FindStringSubmatch(key); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return r, errors.Wrapf(err, "reward %q", key)
		}
		r.Route, r.Gold = RouteGold, n*1000
		return r, nil
	}

	if sk, ok := skillRewards[key]; ok {
		r.Route, r.Skill = RouteSkill, sk
		return r, nil
	}

	return r, errors.Newf("unrecognized reward %q", key)
}

// Bucket 聚合后的奖励与数量
type Bucket struct {
	Reward Reward
	Count  int
}

// Table 珍奇掉落表
type Table struct {
	rewards  []Reward
	weighted *random.Weighted[int]
}

// NewTable 由数据表构建掉落表，每个奖励键都必须可解析
func NewTable(rows []tables.CurioReward) (*Table, error) {
	t := &Table{}
	idx := make([]int, 0, len(rows))
	weights := make([]float64, 0, len(rows))
	for i, row := range rows {
		r, err := ParseReward(row.Reward)
		if err != nil {
			return nil, err
		}
		t.rewards = append(t.rewards, r)
		idx = append(idx, i)
		weights = append(weights, row.Weight)
	}
	w, err := random.NewWeighted(idx, weights)
	if err != nil {
		return nil, errors.Wrap(err, "curio drop table")
	}
	t.weighted = w
	return t, nil
}

// Roll 有放回抽取 amount 次并按奖励键聚合，结果按掉落表顺序排列
func (t *Table) Roll(src random.Source, amount int) []Bucket {
	counts := make([]int, len(t.rewards))
	for _, i := range t.weighted.Sample(src, amount) {
		counts[i]++
	}
	var out []Bucket
	for i, n := range counts {
		if n > 0 {
			out = append(out, Bucket{Reward: t.rewards[i], Count: n})
		}
	}
	return out
}

// Summary 一次批量开启的结果
type Summary struct {
	Opened    int                    `json:"opened"`
	Buckets   []Bucket               `json:"-"`
	Items     []*model.Item          `json:"items,omitempty"`
	Runes     map[model.Column]int64 `json:"runes,omitempty"`
	Gold      int64                  `json:"gold"`
	Materials map[string]int64       `json:"materials,omitempty"`
}

// NewSummary 创建空结果
func NewSummary(opened int, buckets []Bucket) *Summary {
	return &Summary{
		Opened:    opened,
		Buckets:   buckets,
		Runes:     make(map[model.Column]int64),
		Materials: make(map[string]int64),
	}
}

// Picks 抽取总次数
func (s *Summary) Picks() int {
	n := 0
	for _, b := range s.Buckets {
		n += b.Count
	}
	return n
}
