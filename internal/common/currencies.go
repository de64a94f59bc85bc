/**
 * Copyright 2025-present Coinbase Global, Inc.
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

package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// DefaultPrecision applies to currencies missing from the registry
const DefaultPrecision int32 = 2

type CurrencyConfig struct {
	Code      string `yaml:"code"`
	Name      string `yaml:"name"`
	Precision int32  `yaml:"precision"`
}

type CurrenciesConfig struct {
	Currencies []CurrencyConfig `yaml:"currencies"`
}

// CurrencyRegistry maps currency codes to their minor-unit precision
type CurrencyRegistry struct {
	precisions map[string]int32
}

var defaultCurrencies = []CurrencyConfig{
	{Code: "USD", Name: "US Dollar", Precision: 2},
	{Code: "EUR", Name: "Euro", Precision: 2},
	{Code: "GBP", Name: "Pound Sterling", Precision: 2},
	{Code: "NGN", Name: "Naira", Precision: 2},
	{Code: "KES", Name: "Kenyan Shilling", Precision: 2},
	{Code: "BTC", Name: "Bitcoin", Precision: 8},
	{Code: "ETH", Name: "Ether", Precision: 18},
	{Code: "USDC", Name: "USD Coin", Precision: 6},
	{Code: "USDT", Name: "Tether", Precision: 6},
}

func NewCurrencyRegistry(currencies []CurrencyConfig) *CurrencyRegistry {
	r := &CurrencyRegistry{precisions: make(map[string]int32, len(currencies))}
	for _, c := range currencies {
		r.precisions[strings.ToUpper(c.Code)] = c.Precision
	}
	return r
}

func DefaultCurrencyRegistry() *CurrencyRegistry {
	return NewCurrencyRegistry(defaultCurrencies)
}

// LoadCurrencyRegistry reads currencies.yaml. A missing file falls back to
// the built-in table; a malformed one is an error.
func LoadCurrencyRegistry(currenciesFile string) (*CurrencyRegistry, error) {
	if currenciesFile == "" {
		return DefaultCurrencyRegistry(), nil
	}

	currenciesPath := currenciesFile
	if !filepath.IsAbs(currenciesFile) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		currenciesPath = filepath.Join(wd, currenciesFile)
	}

	data, err := os.ReadFile(currenciesPath)
	if errors.Is(err, os.ErrNotExist) {
		zap.L().Warn("Currencies file not found, using built-in table", zap.String("file", currenciesFile))
		return DefaultCurrencyRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", currenciesFile, err)
	}

	var config CurrenciesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", currenciesFile, err)
	}

	for i, c := range config.Currencies {
		if c.Code == "" {
			return nil, fmt.Errorf("currency at index %d missing code", i)
		}
		if c.Precision < 0 || c.Precision > 18 {
			return nil, fmt.Errorf("currency %s has invalid precision %d", c.Code, c.Precision)
		}
	}

	return NewCurrencyRegistry(config.Currencies), nil
}

// Precision returns the decimal places for code, DefaultPrecision if unknown
func (r *CurrencyRegistry) Precision(code string) int32 {
	if p, ok := r.precisions[strings.ToUpper(code)]; ok {
		return p
	}
	return DefaultPrecision
}

func (r *CurrencyRegistry) Known(code string) bool {
	_, ok := r.precisions[strings.ToUpper(code)]
	return ok
}

func (r *CurrencyRegistry) Codes() []string {
	codes := make([]string, 0, len(r.precisions))
	for code := range r.precisions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
