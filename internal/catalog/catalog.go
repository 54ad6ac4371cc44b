// Package catalog holds the reference tables the price engine joins
// against: markets with coordinates and the tracked commodities. They are
// configuration data; Default reproduces the tables the app ships with and
// Load replaces them from a YAML file.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var ErrInvalidCatalog = errors.New("invalid catalog")

type Market struct {
	Name      string  `yaml:"name" json:"name" validate:"required"`
	Latitude  float64 `yaml:"latitude" json:"latitude" validate:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude" validate:"longitude"`
}

type Commodity struct {
	Name        string `yaml:"name" json:"name" validate:"required"`
	DisplayName string `yaml:"display_name" json:"display_name"`
	Icon        string `yaml:"icon" json:"icon,omitempty"`
}

type Catalog struct {
	Currency    string      `yaml:"currency" json:"currency" validate:"required"`
	Unit        string      `yaml:"unit" json:"unit" validate:"required"`
	Markets     []Market    `yaml:"markets" json:"markets" validate:"required,min=1,dive"`
	Commodities []Commodity `yaml:"commodities" json:"commodities" validate:"dive"`
}

func Default() *Catalog {
	return &Catalog{
		Currency: "PKR",
		Unit:     "40kg",
		Markets: []Market{
			{Name: "Faisalabad", Latitude: 31.4504, Longitude: 73.1350},
			{Name: "Karachi", Latitude: 24.8607, Longitude: 67.0011},
			{Name: "Lahore", Latitude: 31.5204, Longitude: 74.3587},
			{Name: "Multan", Latitude: 30.1575, Longitude: 71.5249},
			{Name: "Peshawar", Latitude: 34.0151, Longitude: 71.5249},
			{Name: "Quetta", Latitude: 30.1798, Longitude: 66.9750},
		},
		Commodities: []Commodity{
			{Name: "Wheat", DisplayName: "Wheat", Icon: "🌾"},
			{Name: "Rice", DisplayName: "Rice", Icon: "🍚"},
			{Name: "Maize", DisplayName: "Maize", Icon: "🌽"},
			{Name: "Cotton", DisplayName: "Cotton", Icon: "🌿"},
			{Name: "Sugarcane", DisplayName: "Sugarcane", Icon: "🎋"},
			{Name: "Vegetables", DisplayName: "Vegetables", Icon: "🥬"},
		},
	}
}

// Load reads a catalog from a YAML file. An empty path yields Default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	for i := range c.Commodities {
		if c.Commodities[i].DisplayName == "" {
			c.Commodities[i].DisplayName = c.Commodities[i].Name
		}
	}
	if err := validator.New().Struct(&c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return &c, nil
}

// Commodity looks up a commodity by its dataset name.
func (c *Catalog) Commodity(name string) (Commodity, bool) {
	for _, cm := range c.Commodities {
		if cm.Name == name {
			return cm, true
		}
	}
	return Commodity{}, false
}

// FormatPrice renders a price the way the price cards show it, e.g.
// "PKR 2500 per 40kg".
func (c *Catalog) FormatPrice(price decimal.Decimal) string {
	return fmt.Sprintf("%s %s per %s", c.Currency, price.StringFixed(0), c.Unit)
}
