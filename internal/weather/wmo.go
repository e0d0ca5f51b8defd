// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package weather

// wmoDescriptions maps WMO weather interpretation codes to display text.
var wmoDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	71: "Slight snow",
	73: "Moderate snow",
	75: "Heavy snow",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// Description returns the display text for a WMO weather code.
func Description(code int) string {
	if desc, ok := wmoDescriptions[code]; ok {
		return desc
	}
	return "Unknown"
}

// Icon returns the icon name for a WMO weather code. Names match the
// frontend's weather icon set.
func Icon(code int) string {
	switch code {
	case 0:
		return "sun"
	case 1, 2:
		return "cloud-sun"
	case 3:
		return "cloud"
	case 45, 48:
		return "cloud-fog"
	case 51, 53, 55, 61, 63, 65, 80, 81, 82:
		return "cloud-rain"
	case 71, 73, 75, 77, 85, 86:
		return "cloud-snow"
	case 95, 96, 99:
		return "cloud-lightning-rain"
	default:
		return "sun"
	}
}
