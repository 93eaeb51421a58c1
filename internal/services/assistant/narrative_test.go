package assistant

import (
	"testing"

	"github.com/ternarybob/voyager/internal/models"
)

func TestParseNarrativeItinerary(t *testing.T) {
	text := `Here's a plan for your trip!

Day 1:
- Wat Phra Singh | historic temple in the old town
- Sunday Walking Street Market | evening shopping

Day 2:
- Doi Suthep - mountain temple with city views
- Huay Kaew Waterfall

Enjoy your trip!`

	actions := ParseNarrativeItinerary(text)
	if len(actions) != 2 {
		t.Fatalf("Expected 2 day actions, got %d", len(actions))
	}

	if actions[0].Action != models.ActionAddDestinations || actions[0].Day != 1 {
		t.Errorf("Expected ADD_DESTINATIONS for day 1, got %s day %d", actions[0].Action, actions[0].Day)
	}
	if len(actions[0].Destinations) != 2 {
		t.Fatalf("Expected 2 destinations on day 1, got %d", len(actions[0].Destinations))
	}
	if actions[0].Destinations[0].Name != "Wat Phra Singh" {
		t.Errorf("Expected 'Wat Phra Singh', got %q", actions[0].Destinations[0].Name)
	}
	if actions[0].Destinations[1].Name != "Sunday Walking Street Market" {
		t.Errorf("Expected market name, got %q", actions[0].Destinations[1].Name)
	}

	if actions[1].Day != 2 || len(actions[1].Destinations) != 2 {
		t.Fatalf("Expected 2 destinations on day 2, got %d", len(actions[1].Destinations))
	}
	if actions[1].Destinations[0].Name != "Doi Suthep" {
		t.Errorf("Expected note after ' - ' stripped, got %q", actions[1].Destinations[0].Name)
	}
}

func TestParseNarrativeMarkdownHeadings(t *testing.T) {
	text := `**Day 1:**
1. Grand Palace
2. Wat Pho

**Day 2**
* Chatuchak Market`

	actions := ParseNarrativeItinerary(text)
	if len(actions) != 2 {
		t.Fatalf("Expected 2 day actions, got %d", len(actions))
	}
	if actions[0].Destinations[0].Name != "Grand Palace" {
		t.Errorf("Expected numbered bullet parsed, got %q", actions[0].Destinations[0].Name)
	}
	if actions[1].Destinations[0].Name != "Chatuchak Market" {
		t.Errorf("Expected star bullet parsed, got %q", actions[1].Destinations[0].Name)
	}
}

func TestParseNarrativeIgnoresProse(t *testing.T) {
	text := `I suggest visiting temples in the morning.

There are no day headings here, just chatter.`

	actions := ParseNarrativeItinerary(text)
	if len(actions) != 0 {
		t.Errorf("Expected no actions from prose, got %d", len(actions))
	}
}

func TestParseNarrativeEmptyDayDropped(t *testing.T) {
	text := `Day 1:
- Wat Pho

Day 2:

Day 3:
- Grand Palace`

	actions := ParseNarrativeItinerary(text)
	if len(actions) != 2 {
		t.Fatalf("Expected empty day dropped, got %d actions", len(actions))
	}
	if actions[0].Day != 1 || actions[1].Day != 3 {
		t.Errorf("Expected days 1 and 3, got %d and %d", actions[0].Day, actions[1].Day)
	}
}
