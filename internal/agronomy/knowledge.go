package agronomy

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var defaultKnowledge []byte

type CropKnowledge struct {
	Name               string   `yaml:"name" json:"name"`
	OptimalTemperature string   `yaml:"optimal_temperature" json:"optimalTemperature"`
	WaterNeeds         string   `yaml:"water_needs" json:"waterNeeds"`
	OptimalPH          string   `yaml:"optimal_ph" json:"optimalPh"`
	Stages             []string `yaml:"stages" json:"stages"`
	KeyPests           []string `yaml:"key_pests" json:"keyPests"`
	Fertilizer         string   `yaml:"fertilizer" json:"fertilizer"`
}

// Lines renders the entry as the bullet list used in prompts.
func (c CropKnowledge) Lines() []string {
	return []string{
		"- Optimal Temperature: " + c.OptimalTemperature,
		"- Water Needs: " + c.WaterNeeds,
		"- Optimal pH: " + c.OptimalPH,
		"- Growth Stages: " + strings.Join(c.Stages, ", "),
		"- Key Pests: " + strings.Join(c.KeyPests, ", "),
		"- Fertilizer: " + c.Fertilizer,
	}
}

type KnowledgeBase struct {
	crops []CropKnowledge
}

type knowledgeFile struct {
	Crops []CropKnowledge `yaml:"crops"`
}

// ParseKnowledgeBase decodes a YAML crop table. Names are normalised to
// lowercase; duplicates and empty names are rejected.
func ParseKnowledgeBase(data []byte) (*KnowledgeBase, error) {
	var file knowledgeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode crop knowledge: %w", err)
	}
	if len(file.Crops) == 0 {
		return nil, errors.New("crop knowledge has no crops")
	}
	seen := map[string]struct{}{}
	crops := make([]CropKnowledge, 0, len(file.Crops))
	for _, crop := range file.Crops {
		crop.Name = strings.ToLower(strings.TrimSpace(crop.Name))
		if crop.Name == "" {
			return nil, errors.New("crop knowledge entry without name")
		}
		if _, dup := seen[crop.Name]; dup {
			return nil, fmt.Errorf("duplicate crop knowledge entry %q", crop.Name)
		}
		seen[crop.Name] = struct{}{}
		crops = append(crops, crop)
	}
	return &KnowledgeBase{crops: crops}, nil
}

// LoadKnowledgeBase reads path, or returns the built-in table when path is
// empty.
func LoadKnowledgeBase(path string) (*KnowledgeBase, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultKnowledgeBase(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read crop knowledge: %w", err)
	}
	return ParseKnowledgeBase(data)
}

var defaultKnowledgeBase = sync.OnceValue(func() *KnowledgeBase {
	kb, err := ParseKnowledgeBase(defaultKnowledge)
	if err != nil {
		panic(fmt.Sprintf("embedded crop knowledge: %v", err))
	}
	return kb
})

func DefaultKnowledgeBase() *KnowledgeBase {
	return defaultKnowledgeBase()
}

// Lookup matches loosely: the normalised name may contain a known crop or be
// contained by one, so "Cherry Tomatoes" and "tom" both find tomato. No match
// is not an error.
func (kb *KnowledgeBase) Lookup(crop string) (CropKnowledge, bool) {
	if kb == nil {
		return CropKnowledge{}, false
	}
	normalized := strings.ToLower(strings.TrimSpace(crop))
	if normalized == "" {
		return CropKnowledge{}, false
	}
	for _, entry := range kb.crops {
		if strings.Contains(normalized, entry.Name) || strings.Contains(entry.Name, normalized) {
			return entry, true
		}
	}
	return CropKnowledge{}, false
}

func (kb *KnowledgeBase) Names() []string {
	if kb == nil {
		return nil
	}
	names := make([]string, 0, len(kb.crops))
	for _, entry := range kb.crops {
		names = append(names, entry.Name)
	}
	return names
}
