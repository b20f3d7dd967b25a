package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"onlab_backend/app/core"
)

//go:embed default.yaml
var defaultCatalog []byte

type Lab struct {
	Name    string `yaml:"name" json:"name"`
	Default bool   `yaml:"default" json:"default"`
}

type Region struct {
	Key  string `yaml:"key" json:"key"`
	Name string `yaml:"name" json:"name"`
}

type Pathogen struct {
	Name   string `yaml:"name" json:"name"`
	Prefix string `yaml:"prefix" json:"prefix"`
}

type Label struct {
	Code  string `yaml:"code" json:"code"`
	Label string `yaml:"label" json:"label"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

type City struct {
	Name string  `yaml:"name" json:"name"`
	Lat  float64 `yaml:"lat" json:"lat"`
	Lng  float64 `yaml:"lng" json:"lng"`
}

// Catalog holds the option lists of the intake form and the display labels.
type Catalog struct {
	AppName              string     `yaml:"app_name" json:"app_name"`
	AllLabsLabel         string     `yaml:"all_labs_label" json:"all_labs_label"`
	Labs                 []Lab      `yaml:"labs" json:"labs"`
	Regions              []Region   `yaml:"regions" json:"regions"`
	Crops                []string   `yaml:"crops" json:"crops"`
	Pathogens            []Pathogen `yaml:"pathogens" json:"pathogens"`
	CultivationSystems   []string   `yaml:"cultivation_systems" json:"cultivation_systems"`
	ApplicationMethods   []string   `yaml:"application_methods" json:"application_methods"`
	ActiveIngredients    []string   `yaml:"active_ingredients" json:"active_ingredients"`
	Priorities           []string   `yaml:"priorities" json:"priorities"`
	Statuses             []Label    `yaml:"statuses" json:"statuses"`
	ResistanceCategories []Label    `yaml:"resistance_categories" json:"resistance_categories"`
	UnknownColor         string     `yaml:"unknown_color" json:"unknown_color"`
	Cities               []City     `yaml:"cities" json:"-"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c := &Catalog{}
	if err := yaml.Unmarshal(defaultCatalog, c); err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	sortCities(c.Cities)
	return c
}

// Load starts from the built-in catalog, applies the override file and
// replaces the cities when a raw cities file is configured.
func Load(cfg core.ConfigurationCatalog) (*Catalog, error) {
	c := Default()

	if cfg.Path != "" {
		data, err := os.ReadFile(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("reading catalog %s: %w", cfg.Path, err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parsing catalog %s: %w", cfg.Path, err)
		}
		sortCities(c.Cities)
	}

	if cfg.CitiesFile != "" {
		f, err := os.Open(cfg.CitiesFile)
		if err != nil {
			return nil, fmt.Errorf("reading cities %s: %w", cfg.CitiesFile, err)
		}
		defer f.Close()
		cities, err := LoadRawCities(f)
		if err != nil {
			return nil, fmt.Errorf("parsing cities %s: %w", cfg.CitiesFile, err)
		}
		c.Cities = cities
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) Validate() error {
	if len(c.Labs) == 0 {
		return fmt.Errorf("catalog has no labs")
	}
	if len(c.Pathogens) == 0 {
		return fmt.Errorf("catalog has no pathogens")
	}
	for _, p := range c.Pathogens {
		if len(p.Prefix) != 1 {
			return fmt.Errorf("pathogen %q needs a one letter prefix", p.Name)
		}
	}
	return nil
}

type rawCity struct {
	Name string          `json:"name"`
	Lat  json.RawMessage `json:"latt"`
	Lng  json.RawMessage `json:"long"`
}

// LoadRawCities reads the government locality export ([{name, latt, long}]).
// Rows without a name or with unparsable coordinates are dropped.
func LoadRawCities(r io.Reader) ([]City, error) {
	raw := []rawCity{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	cities := []City{}
	for _, rc := range raw {
		name := strings.TrimSpace(rc.Name)
		lat, okLat := parseCoordinate(rc.Lat)
		lng, okLng := parseCoordinate(rc.Lng)
		if name == "" || !okLat || !okLng {
			continue
		}
		cities = append(cities, City{Name: name, Lat: lat, Lng: lng})
	}
	sortCities(cities)
	return cities, nil
}

func parseCoordinate(raw json.RawMessage) (float64, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func sortCities(cities []City) {
	sort.SliceStable(cities, func(i, j int) bool {
		return cities[i].Name < cities[j].Name
	})
}

func (c *Catalog) DefaultLab() string {
	for _, lab := range c.Labs {
		if lab.Default {
			return lab.Name
		}
	}
	if len(c.Labs) > 0 {
		return c.Labs[0].Name
	}
	return ""
}

func (c *Catalog) HasLab(name string) bool {
	for _, lab := range c.Labs {
		if lab.Name == name {
			return true
		}
	}
	return false
}

// IsAllLabs reports whether a report lab filter selects every lab.
func (c *Catalog) IsAllLabs(lab string) bool {
	lab = strings.TrimSpace(lab)
	return lab == "" || lab == c.AllLabsLabel || strings.EqualFold(lab, "all")
}

func (c *Catalog) HasRegion(name string) bool {
	for _, region := range c.Regions {
		if region.Name == name {
			return true
		}
	}
	return false
}

func (c *Catalog) HasPathogen(name string) bool {
	for _, p := range c.Pathogens {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (c *Catalog) DefaultPriority() string {
	if len(c.Priorities) > 0 {
		return c.Priorities[0]
	}
	return ""
}

func findLabel(labels []Label, code string) (Label, bool) {
	for _, l := range labels {
		if l.Code == code {
			return l, true
		}
	}
	return Label{}, false
}

// StatusLabel falls back to the code for unknown statuses.
func (c *Catalog) StatusLabel(code string) string {
	if l, ok := findLabel(c.Statuses, code); ok {
		return l.Label
	}
	return code
}

func (c *Catalog) CategoryLabel(code string) string {
	if l, ok := findLabel(c.ResistanceCategories, code); ok {
		return l.Label
	}
	return code
}

func (c *Catalog) CategoryColor(code string) string {
	if l, ok := findLabel(c.ResistanceCategories, code); ok && l.Color != "" {
		return l.Color
	}
	return c.UnknownColor
}

// SearchCities matches by substring, an empty query returns all cities.
func (c *Catalog) SearchCities(query string) []City {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.Cities
	}
	cities := []City{}
	for _, city := range c.Cities {
		if strings.Contains(city.Name, query) {
			cities = append(cities, city)
		}
	}
	return cities
}
