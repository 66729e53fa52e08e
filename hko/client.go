package hko

import (
	"context"
	"fmt"

	"github.com/petal-labs/hkomcp/tool"
)

// Client is a typed façade over a dispatcher serving the HKO catalog.
type Client struct {
	dispatcher *tool.Dispatcher
}

// NewClient wraps dispatcher. The dispatcher's registry must contain the HKO
// tools, typically built with NewRegistry.
func NewClient(dispatcher *tool.Dispatcher) (*Client, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("hko: dispatcher is nil")
	}
	for _, name := range []string{ToolWeatherInfo, ToolEarthquakeInfo, ToolLunarDateConversion, ToolHourlyRainfall} {
		if _, ok := dispatcher.Registry().Lookup(name); !ok {
			return nil, fmt.Errorf("hko: dispatcher registry is missing %q", name)
		}
	}
	return &Client{dispatcher: dispatcher}, nil
}

// WeatherInfo fetches weather.php and returns the decoded JSON.
func (c *Client) WeatherInfo(ctx context.Context, req WeatherRequest) (tool.Result, error) {
	return c.invoke(ctx, ToolWeatherInfo, req)
}

// EarthquakeInfo fetches earthquake.php and returns the decoded JSON.
func (c *Client) EarthquakeInfo(ctx context.Context, req EarthquakeRequest) (tool.Result, error) {
	return c.invoke(ctx, ToolEarthquakeInfo, req)
}

// LunarDate fetches lunardate.php and returns the body as text.
func (c *Client) LunarDate(ctx context.Context, req LunarDateRequest) (tool.Result, error) {
	return c.invoke(ctx, ToolLunarDateConversion, req)
}

// HourlyRainfall fetches hourlyRainfall.php and returns the decoded JSON.
func (c *Client) HourlyRainfall(ctx context.Context, req RainfallRequest) (tool.Result, error) {
	return c.invoke(ctx, ToolHourlyRainfall, req)
}

type argumentsEncoder interface {
	Arguments() (map[string]string, error)
}

func (c *Client) invoke(ctx context.Context, name string, req argumentsEncoder) (tool.Result, error) {
	args, err := req.Arguments()
	if err != nil {
		return tool.Result{}, err
	}
	return c.dispatcher.Invoke(ctx, tool.Invocation{Tool: name, Arguments: args})
}
