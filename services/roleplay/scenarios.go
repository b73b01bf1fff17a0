package roleplay

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed scenarios.yaml
var scenariosYAML []byte

type Scenario struct {
	ID        string `yaml:"id" json:"id"`
	Title     string `yaml:"title" json:"title"`
	Persona   string `yaml:"persona" json:"-"`
	Objective string `yaml:"objective" json:"objective"`
	Opening   string `yaml:"opening" json:"-"`
}

type Catalog struct {
	defaultID string
	scenarios []Scenario
	byID      map[string]Scenario
}

func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(scenariosYAML)
}

func ParseCatalog(raw []byte) (*Catalog, error) {
	var file struct {
		Default   string     `yaml:"default"`
		Scenarios []Scenario `yaml:"scenarios"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scenario catalog: %w", err)
	}
	if len(file.Scenarios) == 0 {
		return nil, fmt.Errorf("scenario catalog is empty")
	}

	catalog := &Catalog{defaultID: file.Default, scenarios: file.Scenarios, byID: map[string]Scenario{}}
	for _, scenario := range file.Scenarios {
		if scenario.ID == "" || scenario.Persona == "" {
			return nil, fmt.Errorf("scenario %q is missing an id or persona", scenario.Title)
		}
		catalog.byID[scenario.ID] = scenario
	}
	if _, ok := catalog.byID[catalog.defaultID]; !ok {
		catalog.defaultID = file.Scenarios[0].ID
	}

	return catalog, nil
}

// Get falls back to the default scenario for unknown ids.
func (c *Catalog) Get(id string) Scenario {
	if scenario, ok := c.byID[id]; ok {
		return scenario
	}
	return c.byID[c.defaultID]
}

func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

func (c *Catalog) List() []Scenario {
	return append([]Scenario(nil), c.scenarios...)
}
