package assistant

import (
	"regexp"
	"strings"

	"github.com/ternarybob/voyager/internal/models"
)

// dayHeadingRegex matches "Day 3:" headings, tolerating markdown bold and
// trailing labels ("Day 3: Old Town").
var dayHeadingRegex = regexp.MustCompile(`(?i)^\**\s*day\s+(\d+)\s*\**\s*[:.]?`)

// ParseNarrativeItinerary extracts ADD_DESTINATIONS actions from a
// day-by-day narrative reply. Each "Day N" heading opens a day; each
// bullet under it becomes one destination input. Lines outside any day
// heading are ignored. Returns one action per day, in day order.
func ParseNarrativeItinerary(text string) []models.TripAction {
	var actions []models.TripAction
	var current *models.TripAction

	flush := func() {
		if current != nil && len(current.Destinations) > 0 {
			actions = append(actions, *current)
		}
		current = nil
	}

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if m := dayHeadingRegex.FindStringSubmatch(line); m != nil {
			flush()
			day := 0
			for _, ch := range m[1] {
				day = day*10 + int(ch-'0')
			}
			if day < 1 {
				day = 1
			}
			current = &models.TripAction{
				Action: models.ActionAddDestinations,
				Day:    day,
			}
			continue
		}

		if current == nil {
			continue
		}

		name := parseNarrativeLine(line)
		if name == "" {
			continue
		}
		current.Destinations = append(current.Destinations, models.DestinationInput{Name: name})
	}
	flush()

	return actions
}

// parseNarrativeLine extracts a place name from one itinerary bullet.
// Accepts "- Name | note", "* Name - note", "1. Name", plain "Name".
func parseNarrativeLine(line string) string {
	// Strip bullet markers
	line = strings.TrimLeft(line, "-*• \t")
	line = numberedPrefixRegex.ReplaceAllString(line, "")

	// Drop the note after a separator
	if idx := strings.Index(line, "|"); idx >= 0 {
		line = line[:idx]
	} else if idx := strings.Index(line, " - "); idx >= 0 {
		line = line[:idx]
	} else if idx := strings.Index(line, ":"); idx >= 0 {
		line = line[:idx]
	}

	line = strings.Trim(line, "*_ \t")
	if len(line) < 2 {
		return ""
	}
	return line
}

var numberedPrefixRegex = regexp.MustCompile(`^\d+[.)]\s*`)
