package hko

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// WeatherRequest is the input of weather-info.
type WeatherRequest struct {
	DataType string `json:"dataType" mapstructure:"dataType" jsonschema:"enum=flw,enum=fnd,enum=rhrread,enum=warnsum,enum=warningInfo,enum=swt,description=The type of weather information to get."`
	// Lang defaults to "en" when empty.
	Lang string `json:"lang,omitempty" mapstructure:"lang,omitempty" jsonschema:"enum=en,enum=tc,enum=sc,default=en,description=The language of the weather information."`
}

// EarthquakeRequest is the input of earthquake-info.
type EarthquakeRequest struct {
	DataType string `json:"dataType" mapstructure:"dataType" jsonschema:"enum=qem,enum=feltearthquake,description=The type of earthquake information to get."`
	// Lang defaults to "en" when empty.
	Lang string `json:"lang,omitempty" mapstructure:"lang,omitempty" jsonschema:"enum=en,enum=tc,enum=sc,default=en,description=The language of the earthquake information."`
}

// LunarDateRequest is the input of lunar-date-conversion.
type LunarDateRequest struct {
	// Date is a Gregorian date formatted YYYY-MM-DD.
	Date string `json:"date" mapstructure:"date" jsonschema:"example=2023-10-01,description=The Gregorian date to convert in YYYY-MM-DD format."`
}

// RainfallRequest is the input of hourly-rainfall.
type RainfallRequest struct {
	// Lang defaults to "en" when empty.
	Lang string `json:"lang,omitempty" mapstructure:"lang,omitempty" jsonschema:"enum=en,enum=tc,enum=sc,default=en,description=The language of the rainfall information."`
}

// Arguments converts a typed request to dispatcher arguments. Empty optional
// fields are left out so the descriptor default applies.
func (r WeatherRequest) Arguments() (map[string]string, error) {
	return encodeArguments(r)
}

// Arguments converts a typed request to dispatcher arguments.
func (r EarthquakeRequest) Arguments() (map[string]string, error) {
	return encodeArguments(r)
}

// Arguments converts a typed request to dispatcher arguments.
func (r LunarDateRequest) Arguments() (map[string]string, error) {
	return encodeArguments(r)
}

// Arguments converts a typed request to dispatcher arguments.
func (r RainfallRequest) Arguments() (map[string]string, error) {
	return encodeArguments(r)
}

func encodeArguments(req any) (map[string]string, error) {
	out := map[string]string{}
	if err := mapstructure.Decode(req, &out); err != nil {
		return nil, fmt.Errorf("hko: encode %T arguments: %w", req, err)
	}
	return out, nil
}
