// Package menufile loads the storefront catalogue from a YAML document.
package menufile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/dmehra2102/food-storefront/internal/food/domain"
)

var ErrInvalidMenu = errors.New("invalid menu")

type file struct {
	Items []item `yaml:"items"`
}

type item struct {
	ID       int64  `yaml:"id"`
	Name     string `yaml:"name"`
	Quantity int    `yaml:"quantity"`
	Desc     string `yaml:"desc"`
	Price    string `yaml:"price"`
	Image    string `yaml:"image"`
}

func Load(path string) ([]domain.MenuItem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu file: %w", err)
	}
	return Parse(bytes.NewReader(raw))
}

func Parse(r io.Reader) ([]domain.MenuItem, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMenu, err)
	}
	if len(f.Items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidMenu)
	}

	seen := make(map[int64]bool, len(f.Items))
	menu := make([]domain.MenuItem, 0, len(f.Items))
	for i, it := range f.Items {
		if it.Name == "" {
			return nil, fmt.Errorf("%w: item %d has no name", ErrInvalidMenu, i)
		}
		if seen[it.ID] {
			return nil, fmt.Errorf("%w: duplicate id %d", ErrInvalidMenu, it.ID)
		}
		seen[it.ID] = true
		if it.Quantity < 0 {
			return nil, fmt.Errorf("%w: %s has negative quantity", ErrInvalidMenu, it.Name)
		}
		price, err := decimal.NewFromString(it.Price)
		if err != nil || price.IsNegative() {
			return nil, fmt.Errorf("%w: %s has invalid price %q", ErrInvalidMenu, it.Name, it.Price)
		}
		menu = append(menu, domain.MenuItem{
			ID:          it.ID,
			Name:        it.Name,
			Quantity:    it.Quantity,
			Description: it.Desc,
			Price:       price,
			Image:       it.Image,
		})
	}
	return menu, nil
}
