package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Number is a float64 whose JSON form keeps non-finite values visible as the
// strings "NaN", "+Inf" and "-Inf". Finite values encode as plain numbers.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

func (n *Number) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("number: %w", err)
		}
		*n = Number(f)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*n = Number(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Numbers converts a float slice for encoding.
func Numbers(fs []float64) []Number {
	out := make([]Number, len(fs))
	for i, f := range fs {
		out[i] = Number(f)
	}
	return out
}

type indicesJSON struct {
	CF   Number `json:"cf"`
	IGeo Number `json:"iGeo"`
	PLI  Number `json:"pli"`
}

func (i Indices) MarshalJSON() ([]byte, error) {
	return json.Marshal(indicesJSON{CF: Number(i.CF), IGeo: Number(i.IGeo), PLI: Number(i.PLI)})
}

func (i *Indices) UnmarshalJSON(data []byte) error {
	var raw indicesJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*i = Indices{CF: float64(raw.CF), IGeo: float64(raw.IGeo), PLI: float64(raw.PLI)}
	return nil
}

func (a LocationAggregate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Location        string   `json:"location"`
		Metals          []string `json:"metals"`
		CFValues        []Number `json:"cfValues"`
		MultiMetalIndex Number   `json:"multiMetalPLI"`
		HazardIndex     Number   `json:"hazardIndex"`
	}{
		Location:        a.Location,
		Metals:          a.Metals,
		CFValues:        Numbers(a.CFValues),
		MultiMetalIndex: Number(a.MultiMetalIndex),
		HazardIndex:     Number(a.HazardIndex),
	})
}

// MarshalJSON renders an indeterminate forecast with a null value.
func (f Forecast) MarshalJSON() ([]byte, error) {
	var value *Number
	if f.Determinate {
		v := Number(f.Value)
		value = &v
	}
	return json.Marshal(struct {
		Value       *Number `json:"value"`
		Determinate bool    `json:"determinate"`
		Points      int     `json:"points"`
	}{Value: value, Determinate: f.Determinate, Points: f.Points})
}
