/**
 * Copyright 2025-present The promo-sales-go Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

type Product struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

type ProductsConfig struct {
	Products []Product `yaml:"products"`
}

// Catalog translates numeric product codes found in uploads to canonical
// product names. It is read-only once built.
type Catalog struct {
	names map[string]string
}

func New(products []Product) (*Catalog, error) {
	names := make(map[string]string, len(products))
	for i, p := range products {
		code := strings.TrimSpace(p.Code)
		name := strings.TrimSpace(p.Name)
		if code == "" {
			return nil, fmt.Errorf("product at index %d missing code", i)
		}
		if name == "" {
			return nil, fmt.Errorf("product at index %d missing name", i)
		}
		if _, dup := names[code]; dup {
			return nil, fmt.Errorf("product code %s listed more than once", code)
		}
		names[code] = name
	}
	return &Catalog{names: names}, nil
}

func Load(productsFile string) (*Catalog, error) {
	var productsPath string
	if filepath.IsAbs(productsFile) {
		productsPath = productsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		productsPath = filepath.Join(wd, productsFile)
	}

	data, err := os.ReadFile(productsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", productsFile, err)
	}

	var config ProductsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", productsFile, err)
	}

	return New(config.Products)
}

// Lookup returns the canonical name for a product code. A nil catalog
// knows no codes.
func (c *Catalog) Lookup(code string) (string, bool) {
	if c == nil {
		return "", false
	}
	name, ok := c.names[strings.TrimSpace(code)]
	return name, ok
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Products returns the catalog sorted by code.
func (c *Catalog) Products() []Product {
	if c == nil {
		return nil
	}
	products := make([]Product, 0, len(c.names))
	for code, name := range c.names {
		products = append(products, Product{Code: code, Name: name})
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].Code < products[j].Code
	})
	return products
}
