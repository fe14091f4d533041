// Package pricing derives cart totals. Everything here is a pure function of its inputs.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidZone = errors.New("invalid delivery zone")

const (
	ZoneInsideDhaka  = "inside_dhaka"
	ZoneOutsideDhaka = "outside_dhaka"
)

// Zone is a flat delivery tier. Charge is in minor currency units.
type Zone struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Charge int64  `json:"charge"`
}

// Zones is the fixed set of delivery zones. The ids never change at runtime; only the
// charges may be configured.
type Zones struct {
	byID  map[string]Zone
	order []string
}

func DefaultZones() *Zones {
	z, _ := NewZones(nil)
	return z
}

// NewZones returns the zone registry with charge overrides applied.
// Overriding an id outside the registry is an error.
func NewZones(charges map[string]int64) (*Zones, error) {
	z := &Zones{
		byID: map[string]Zone{
			ZoneInsideDhaka:  {ID: ZoneInsideDhaka, Name: "Inside Dhaka", Charge: 60},
			ZoneOutsideDhaka: {ID: ZoneOutsideDhaka, Name: "Outside Dhaka", Charge: 120},
		},
		order: []string{ZoneInsideDhaka, ZoneOutsideDhaka},
	}
	for id, charge := range charges {
		zone, ok := z.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidZone, id)
		}
		if charge < 0 {
			return nil, fmt.Errorf("zone %q: negative charge", id)
		}
		zone.Charge = charge
		z.byID[id] = zone
	}
	return z, nil
}

func (z *Zones) Lookup(id string) (Zone, error) {
	zone, ok := z.byID[id]
	if !ok {
		return Zone{}, fmt.Errorf("%w: %q", ErrInvalidZone, id)
	}
	return zone, nil
}

func (z *Zones) All() []Zone {
	out := make([]Zone, 0, len(z.order))
	for _, id := range z.order {
		out = append(out, z.byID[id])
	}
	return out
}

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Snapshot struct {
	Subtotal       int64 `json:"subtotal"`
	DeliveryCharge int64 `json:"delivery_charge"`
	GrandTotal     int64 `json:"grand_total"`
}

// Calculator converts catalog prices (major units) into minor-unit totals.
type Calculator struct {
	exponent int32
}

// NewCalculator takes the number of decimal places of the currency (0 for BDT).
func NewCalculator(exponent int32) Calculator {
	return Calculator{exponent: exponent}
}

// Subtotal sums the lines exactly and rounds once, half away from zero, to the
// smallest currency unit.
func (c Calculator) Subtotal(lines []Line) int64 {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum.Shift(c.exponent).Round(0).IntPart()
}

func (c Calculator) Calculate(lines []Line, zone Zone) Snapshot {
	sub := c.Subtotal(lines)
	return Snapshot{
		Subtotal:       sub,
		DeliveryCharge: zone.Charge,
		GrandTotal:     sub + zone.Charge,
	}
}
