package rewards

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// Level is one row of the level table. Number is 1-based.
type Level struct {
	Number    int
	Name      string
	Threshold decimal.Decimal
}

// LevelTable maps lifetime earnings to a level. Thresholds strictly increase.
type LevelTable struct {
	levels []Level
}

// DefaultLevels is the production level table
func DefaultLevels() *LevelTable {
	table, _ := NewLevelTable([]LevelConfig{
		{Name: "Starter", Threshold: "0"},
		{Name: "Bronze", Threshold: "100"},
		{Name: "Silver", Threshold: "500"},
		{Name: "Gold", Threshold: "1500"},
		{Name: "Platinum", Threshold: "3000"},
		{Name: "Diamond", Threshold: "6000"},
	})
	return table
}

type LevelConfig struct {
	Name      string `yaml:"name"`
	Threshold string `yaml:"threshold"`
}

type LevelsConfig struct {
	Levels []LevelConfig `yaml:"levels"`
}

func NewLevelTable(configs []LevelConfig) (*LevelTable, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("level table is empty")
	}

	levels := make([]Level, len(configs))
	for i, c := range configs {
		threshold, err := decimal.NewFromString(c.Threshold)
		if err != nil {
			return nil, fmt.Errorf("level %d has invalid threshold %q: %w", i+1, c.Threshold, err)
		}
		if i == 0 && !threshold.IsZero() {
			return nil, fmt.Errorf("first level threshold must be 0, got %s", threshold)
		}
		if i > 0 && !threshold.GreaterThan(levels[i-1].Threshold) {
			return nil, fmt.Errorf("level %d threshold %s must exceed %s", i+1, threshold, levels[i-1].Threshold)
		}
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("Level %d", i+1)
		}
		levels[i] = Level{Number: i + 1, Name: name, Threshold: threshold}
	}
	return &LevelTable{levels: levels}, nil
}

// LoadLevelTable reads levels.yaml; an empty path yields the defaults
func LoadLevelTable(path string) (*LevelTable, error) {
	if path == "" {
		return DefaultLevels(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}
	var config LevelsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", path, err)
	}
	return NewLevelTable(config.Levels)
}

// LevelFor returns the highest level whose threshold is at or below totalEarned
func (t *LevelTable) LevelFor(totalEarned decimal.Decimal) int {
	level := 1
	for _, l := range t.levels {
		if l.Threshold.GreaterThan(totalEarned) {
			break
		}
		level = l.Number
	}
	return level
}

func (t *LevelTable) Name(level int) string {
	if level < 1 || level > len(t.levels) {
		return fmt.Sprintf("Level %d", level)
	}
	return t.levels[level-1].Name
}

// NextThreshold is the earnings needed for the level after level. At the top
// level it is twice the last threshold.
func (t *LevelTable) NextThreshold(level int) decimal.Decimal {
	if level < 1 {
		level = 1
	}
	if level < len(t.levels) {
		return t.levels[level].Threshold
	}
	return t.levels[len(t.levels)-1].Threshold.Mul(decimal.NewFromInt(2))
}

func (t *LevelTable) Len() int {
	return len(t.levels)
}
