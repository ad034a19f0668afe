package model

// Skill 采集技能
type Skill string

const (
	SkillMining      Skill = "mining"
	SkillFishing     Skill = "fishing"
	SkillWoodcutting Skill = "woodcutting"
)

// Skills 全部技能
var Skills = []Skill{SkillMining, SkillFishing, SkillWoodcutting}

type skillDef struct {
	tiers     []string
	resources []string
}

// 工具等级与资源一一对应：第 i 级工具解锁第 i 种资源
var skillDefs = map[Skill]skillDef{
	SkillMining: {
		tiers:     []string{"iron", "steel", "gold", "platinum", "ideal"},
		resources: []string{"iron", "coal", "gold", "platinum", "idea"},
	},
	SkillWoodcutting: {
		tiers:     []string{"flimsy", "carved", "chopping", "magic", "felling"},
		resources: []string{"oak_logs", "willow_logs", "mahogany_logs", "magic_logs", "idea_logs"},
	},
	SkillFishing: {
		tiers:     []string{"desiccated", "regular", "sturdy", "reinforced", "titanium"},
		resources: []string{"desiccated_bones", "regular_bones", "sturdy_bones", "reinforced_bones", "titanium_bones"},
	},
}

// ParseSkill 解析技能名
func ParseSkill(s string) (Skill, bool) {
	sk := Skill(s)
	_, ok := skillDefs[sk]
	return sk, ok
}

// Table 技能对应的表名
func (s Skill) Table() string { return string(s) }

// Tiers 有序工具等级
func (s Skill) Tiers() []string { return skillDefs[s].tiers }

// Resources 资源列白名单，按解锁顺序
func (s Skill) Resources() []string { return skillDefs[s].resources }

// TierIndex 工具等级序号，未知等级返回 false
func (s Skill) TierIndex(tier string) (int, bool) {
	for i, t := range skillDefs[s].tiers {
		if t == tier {
			return i, true
		}
	}
	return 0, false
}

// LowestTier 注册时发放的初始工具
func (s Skill) LowestTier() string { return skillDefs[s].tiers[0] }

// NextTier 下一级工具，已满级返回 false
func (s Skill) NextTier(tier string) (string, bool) {
	i, ok := s.TierIndex(tier)
	if !ok || i+1 >= len(skillDefs[s].tiers) {
		return "", false
	}
	return skillDefs[s].tiers[i+1], true
}

// IsResource 资源列白名单校验
func (s Skill) IsResource(col string) bool {
	for _, r := range skillDefs[s].resources {
		if r == col {
			return true
		}
	}
	return false
}

// SkillRow 单个技能行快照
type SkillRow struct {
	UserID    string           `json:"user_id"`
	ServerID  string           `json:"server_id"`
	Skill     Skill            `json:"skill"`
	ToolTier  string           `json:"tool_tier"`
	Resources map[string]int64 `json:"resources"`
}

// SkillForResource 按资源名反查所属技能（send_material 使用）
func SkillForResource(col string) (Skill, bool) {
	for _, s := range Skills {
		if s.IsResource(col) {
			return s, true
		}
	}
	return "", false
}
