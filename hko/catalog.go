package hko

import (
	"strings"

	"github.com/petal-labs/hkomcp/tool"
)

// DefaultBaseURL is the HKO open-data API root.
const DefaultBaseURL = "https://data.weather.gov.hk/weatherAPI/opendata"

// Tool names exposed at the invocation boundary.
const (
	ToolWeatherInfo         = "weather-info"
	ToolEarthquakeInfo      = "earthquake-info"
	ToolLunarDateConversion = "lunar-date-conversion"
	ToolHourlyRainfall      = "hourly-rainfall"
)

// DefaultLang is applied when a caller omits lang.
const DefaultLang = "en"

// lunarDateSeparator reproduces the upstream-compatible "??date=" form the
// lunar date endpoint has always been called with.
const lunarDateSeparator = "??"

// Option adjusts catalog construction.
type Option func(*options)

type options struct {
	baseURL              string
	singleLunarSeparator bool
}

// WithBaseURL points every endpoint at a different API root, such as a mirror
// or a test server. Trailing slashes are trimmed.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		if clean := strings.TrimRight(strings.TrimSpace(baseURL), "/"); clean != "" {
			o.baseURL = clean
		}
	}
}

// WithSingleSeparatorLunarDate calls the lunar date endpoint with a single
// "?" separator instead of the historical "??".
func WithSingleSeparatorLunarDate(enabled bool) Option {
	return func(o *options) {
		o.singleLunarSeparator = enabled
	}
}

func buildOptions(opts []Option) options {
	o := options{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Descriptors returns the four HKO tool descriptors in listing order.
func Descriptors(opts ...Option) []tool.Descriptor {
	o := buildOptions(opts)

	lunarSeparator := lunarDateSeparator
	if o.singleLunarSeparator {
		lunarSeparator = tool.DefaultQuerySeparator
	}

	return []tool.Descriptor{
		{
			Name:        ToolWeatherInfo,
			Description: weatherDescription,
			Endpoint:    o.baseURL + "/weather.php",
			Format:      tool.FormatJSON,
			Parameters: []tool.ParamSpec{
				tool.RequiredParam("dataType", "The type of weather information to get.", WeatherDataTypes...),
				langParam("weather information"),
			},
			InputSchema: mustSchema(WeatherRequest{}),
		},
		{
			Name:        ToolEarthquakeInfo,
			Description: earthquakeDescription,
			Endpoint:    o.baseURL + "/earthquake.php",
			Format:      tool.FormatJSON,
			Parameters: []tool.ParamSpec{
				tool.RequiredParam("dataType", "The type of earthquake information to get.", EarthquakeDataTypes...),
				langParam("earthquake information"),
			},
			InputSchema: mustSchema(EarthquakeRequest{}),
		},
		{
			Name:           ToolLunarDateConversion,
			Description:    lunarDescription,
			Endpoint:       o.baseURL + "/lunardate.php",
			Format:         tool.FormatText,
			QuerySeparator: lunarSeparator,
			Parameters: []tool.ParamSpec{
				tool.RequiredParam("date", "The Gregorian date to convert in YYYY-MM-DD format."),
			},
			InputSchema: mustSchema(LunarDateRequest{}),
		},
		{
			Name:        ToolHourlyRainfall,
			Description: rainfallDescription,
			Endpoint:    o.baseURL + "/hourlyRainfall.php",
			Format:      tool.FormatJSON,
			Parameters: []tool.ParamSpec{
				langParam("rainfall information"),
			},
			InputSchema: mustSchema(RainfallRequest{}),
		},
	}
}

// NewRegistry returns a registry holding the HKO tools.
func NewRegistry(opts ...Option) (*tool.Registry, error) {
	return tool.NewRegistry(Descriptors(opts...)...)
}

func langParam(subject string) tool.ParamSpec {
	return tool.StringParam("lang", "The language of the "+subject+".", DefaultLang, Langs...)
}

// Enumerations published as schema hints.
var (
	WeatherDataTypes    = []string{"flw", "fnd", "rhrread", "warnsum", "warningInfo", "swt"}
	EarthquakeDataTypes = []string{"qem", "feltearthquake"}
	Langs               = []string{"en", "tc", "sc"}
)

const weatherDescription = `Get weather information from the Hong Kong Observatory.

dataType:
  - flw: Local Weather Forecast
  - fnd: 9-day Weather Forecast
  - rhrread: Current Weather Report
  - warnsum: Weather Warning Summary
  - warningInfo: Weather Warning Information
  - swt: Special Weather Tips
lang:
  - en: English
  - tc: Traditional Chinese
  - sc: Simplified Chinese

Returns the weather information in JSON format.`

const earthquakeDescription = `Get earthquake information from the Hong Kong Observatory.

dataType:
  - qem: Quick Earthquake Messages
  - feltearthquake: Locally Felt Earth Tremor Report
lang:
  - en: English
  - tc: Traditional Chinese
  - sc: Simplified Chinese

Returns the earthquake information in JSON format.`

const lunarDescription = `Convert a Gregorian date to a Lunar date.

date: the Gregorian date to convert, formatted YYYY-MM-DD.

Returns the upstream body unchanged as text; it carries LunarYear and LunarDate.`

const rainfallDescription = `Get the past hour rainfall for each station from the Hong Kong Observatory.

lang:
  - en: English
  - tc: Traditional Chinese
  - sc: Simplified Chinese

Returns the rainfall information in JSON format.`
