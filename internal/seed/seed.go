// Package seed loads the initial reference data (fuel prices, vehicles and
// drivers) from a TOML file.
package seed

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"fuellog/internal/core"
)

// Data is the reference data a backend starts from.
type Data struct {
	Prices   []core.FuelPrice
	Vehicles []core.Vehicle
	Drivers  []core.Driver
}

type file struct {
	Prices []struct {
		Name  string  `toml:"name"`
		Price float64 `toml:"price"`
	} `toml:"prices"`
	Vehicles []struct {
		Number string `toml:"number"`
		Model  string `toml:"model"`
	} `toml:"vehicles"`
	Drivers []struct {
		Name string `toml:"name"`
	} `toml:"drivers"`
}

// Default returns the built-in price table with no vehicles or drivers.
func Default() Data {
	return Data{Prices: core.DefaultFuelPrices()}
}

// Load reads path and overlays its prices on the defaults. An empty path
// returns Default.
func Load(path string) (Data, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	var f file
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return Data{}, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return Data{}, fmt.Errorf("seed file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return f.data()
}

func (f file) data() (Data, error) {
	d := Default()
	for _, p := range f.Prices {
		t, err := core.ParseFuelType(p.Name)
		if err != nil {
			return Data{}, fmt.Errorf("seed price: %w", err)
		}
		if err := core.ValidatePrice(p.Price); err != nil {
			return Data{}, fmt.Errorf("seed price for %s: %w", t, err)
		}
		for i := range d.Prices {
			if d.Prices[i].Name == t {
				d.Prices[i].Price = p.Price
			}
		}
	}
	for i, v := range f.Vehicles {
		number := strings.TrimSpace(v.Number)
		if number == "" {
			return Data{}, fmt.Errorf("seed vehicle %d: number is required", i+1)
		}
		d.Vehicles = append(d.Vehicles, core.Vehicle{ID: int64(i + 1), Number: number, Model: strings.TrimSpace(v.Model)})
	}
	for i, dr := range f.Drivers {
		name := strings.TrimSpace(dr.Name)
		if name == "" {
			return Data{}, fmt.Errorf("seed driver %d: name is required", i+1)
		}
		d.Drivers = append(d.Drivers, core.Driver{ID: int64(i + 1), Name: name})
	}
	return d, nil
}
