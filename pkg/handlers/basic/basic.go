package basic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/MCPRUNNER/geostacMCP/pkg/config"
	"github.com/MCPRUNNER/geostacMCP/pkg/toolkit"
)

// The starter tools. Every handler here returns its outcome as a plain
// string, including argument problems, so callers always get a readable
// message instead of a failure envelope.

var calculatorOperations = []string{"add", "subtract", "multiply", "divide"}

// Calculator returns the arithmetic demo handler. Operands default to
// zero when absent; non-numeric operands produce an error message.
func Calculator() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		operation, _ := toolkit.String(arguments, "operation")

		operand := func(key string) (float64, bool) {
			if _, present := arguments[key]; !present {
				return 0, true
			}
			return toolkit.Float(arguments, key)
		}

		a, okA := operand("a")
		b, okB := operand("b")
		if !okA || !okB {
			return "Error: 'a' and 'b' must be numbers", nil
		}

		var result string
		switch operation {
		case "add":
			result = formatNumber(a + b)
		case "subtract":
			result = formatNumber(a - b)
		case "multiply":
			result = formatNumber(a * b)
		case "divide":
			if b == 0 {
				result = "Cannot divide by zero"
			} else {
				result = formatNumber(a / b)
			}
		default:
			return fmt.Sprintf("Unknown operation: %s. Available: %v", operation, calculatorOperations), nil
		}

		return fmt.Sprintf("%s %s %s = %s", formatNumber(a), operation, formatNumber(b), result), nil
	}
}

// Memory returns the context persistence demo handler. Values live
// under memory_<key> in the shared context, so independent tools can
// coexist with it.
func Memory() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		action, _ := toolkit.String(arguments, "action")
		key := toolkit.StringOr(arguments, "key", "")
		if key == "" {
			return "Error: 'key' parameter is required", nil
		}

		switch action {
		case "store":
			value, present := arguments["value"]
			if !present || value == nil {
				return "Error: 'value' parameter required for 'store' action", nil
			}
			ctx.Set("memory_"+key, value)
			return fmt.Sprintf("Stored '%v' with key '%s'", value, key), nil
		case "retrieve":
			value := ctx.GetDefault("memory_"+key, nil)
			if value == nil {
				return fmt.Sprintf("No memory found for key '%s'", key), nil
			}
			return fmt.Sprintf("Retrieved: %v", value), nil
		default:
			return fmt.Sprintf("Unknown action: %s. Use 'store' or 'retrieve'", action), nil
		}
	}
}

// Greeting returns the customary first tool of the walkthroughs.
func Greeting() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		name := toolkit.StringOr(arguments, "name", "Guest")
		return fmt.Sprintf("Hello, %s! Welcome to GeoSTAC Explorer.", name), nil
	}
}

type weatherResponse struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
}

// Weather returns a handler backed by the OpenWeatherMap current
// weather endpoint. Missing keys and lookup failures degrade to a
// readable message rather than a failure envelope.
func Weather(cfg config.Config, client *http.Client) toolkit.Handler {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	service := cfg.Service(config.ServiceOpenWeather)
	endpoint := cfg.ServiceURL(config.ServiceOpenWeather, "https://api.openweathermap.org/data/2.5/weather")

	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		city := toolkit.StringOr(arguments, "city", "Unknown")
		if service.APIKey == "" {
			return fmt.Sprintf("Weather data not available for: %s (API key not configured)", city), nil
		}

		unavailable := fmt.Sprintf("Weather data not available for: %s", city)

		query := url.Values{}
		query.Set("q", city)
		query.Set("appid", service.APIKey)
		query.Set("units", "metric")

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, endpoint+"?"+query.Encode(), nil)
		if err != nil {
			return unavailable, nil
		}

		resp, err := client.Do(req)
		if err != nil {
			return unavailable, nil
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return unavailable, nil
		}

		var payload weatherResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return unavailable, nil
		}
		if len(payload.Weather) == 0 {
			return unavailable, nil
		}

		description := titleCase(payload.Weather[0].Description)
		return fmt.Sprintf("Weather in %s: %s, %d°C", city, description, int(payload.Main.Temp)), nil
	}
}

// Register wires the starter tools into the server.
func Register(srv *toolkit.Server, cfg config.Config) error {
	tools := map[string]toolkit.Handler{
		"calculator": Calculator(),
		"memory":     Memory(),
		"greeting":   Greeting(),
		"weather":    Weather(cfg, nil),
	}
	for name, handler := range tools {
		if err := srv.Register(name, handler); err != nil {
			return err
		}
	}
	return nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// titleCase uppercases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
