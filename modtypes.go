package segmentweaver

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mitchellh/mapstructure"
)

// Typed views over the reference modifier definitions. They are decoded on
// demand from the opaque Props of a ModDef or resolved Modifier.

type Indent struct {
	Indents       int  `mapstructure:"indents"`
	HangingIndent bool `mapstructure:"hangingIndent"`
}

type Alignment struct {
	Alignment string `mapstructure:"alignment"`
}

// Alignment values.
const (
	AlignLeft    = "left"
	AlignRight   = "right"
	AlignCenter  = "center"
	AlignJustify = "justify"
)

type Font struct {
	FontFace string  `mapstructure:"fontFace"`
	FontSize float64 `mapstructure:"fontSize"`
}

type Link struct {
	Href   string `mapstructure:"href"`
	Target string `mapstructure:"target"`
}

type RGB struct {
	R float64 `mapstructure:"r"`
	G float64 `mapstructure:"g"`
	B float64 `mapstructure:"b"`
}

type HSL struct {
	H float64 `mapstructure:"h"`
	S float64 `mapstructure:"s"`
	L float64 `mapstructure:"l"`
}

type HSV struct {
	H float64 `mapstructure:"h"`
	S float64 `mapstructure:"s"`
	V float64 `mapstructure:"v"`
}

// Color is shared by the color and highlight definitions. Any one of the
// representations may be present; Hex picks the first usable one.
type Color struct {
	RGB   *RGB     `mapstructure:"rgb"`
	HSL   *HSL     `mapstructure:"hsl"`
	HSV   *HSV     `mapstructure:"hsv"`
	Alpha *float64 `mapstructure:"alpha"`
	Hex   string   `mapstructure:"hex"`
}

// HexString returns the colour as "#rrggbb", preferring hex, then rgb, hsl
// and hsv. ok is false when no representation is present.
func (c Color) HexString() (hex string, ok bool) {
	switch {
	case c.Hex != "":
		if c.Hex[0] != '#' {
			return "#" + c.Hex, true
		}
		return c.Hex, true
	case c.RGB != nil:
		return colorful.Color{R: c.RGB.R / 255, G: c.RGB.G / 255, B: c.RGB.B / 255}.Clamped().Hex(), true
	case c.HSL != nil:
		return colorful.Hsl(c.HSL.H, unit(c.HSL.S), unit(c.HSL.L)).Clamped().Hex(), true
	case c.HSV != nil:
		return colorful.Hsv(c.HSV.H, unit(c.HSV.S), unit(c.HSV.V)).Clamped().Hex(), true
	}
	return "", false
}

// unit accepts both 0..1 fractions and 0..100 percentages.
func unit(v float64) float64 {
	if v > 1 {
		return v / 100
	}
	return v
}

// DecodeModDef decodes the fields of a definition into a typed view such as
// Indent or Link.
func DecodeModDef[T any](def ModDef) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook:       numberHook,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(def.Props); err != nil {
		return out, fmt.Errorf("decode %s definition %q: %w", def.Type, def.ID, err)
	}
	return out, nil
}

// numberHook hands decoded json.Number values to numeric fields as float64,
// so fractional values truncate into int fields as they did before.
func numberHook(from, to reflect.Type, data any) (any, error) {
	n, ok := data.(json.Number)
	if !ok {
		return data, nil
	}
	switch to.Kind() {
	case reflect.String, reflect.Interface:
		return data, nil
	}
	return n.Float64()
}

// DecodeModifier decodes a resolved modifier's fields into a typed view.
func DecodeModifier[T any](m Modifier) (T, error) {
	return DecodeModDef[T](m.Def())
}
