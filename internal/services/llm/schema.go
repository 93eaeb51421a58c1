package llm

import "google.golang.org/genai"

// TurnResultSchema returns the response schema for structured turns.
// When passed to Gemini, the model is constrained to emit JSON matching
// the action protocol; the output is still re-validated after parsing.
func TurnResultSchema() *genai.Schema {
	actionTypes := []string{
		"ADD_DESTINATIONS",
		"REMOVE_DESTINATIONS",
		"REORDER_DESTINATIONS",
		"MOVE_DESTINATION",
		"UPDATE_TRIP_INFO",
		"MODIFY_TRIP",
		"RECOMMEND_PLACES",
		"ASK_PERSONAL_INFO",
		"NO_ACTION",
	}

	destinationSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":           {Type: genai.TypeString, Description: "Place name to resolve"},
			"hintAddress":    {Type: genai.TypeString, Description: "Optional address or area hint"},
			"minHours":       {Type: genai.TypeNumber},
			"place_type":     {Type: genai.TypeString, Enum: []string{"tourist_attraction", "lodging", "restaurant"}},
			"visit_duration": {Type: genai.TypeInteger, Description: "Visit duration in minutes"},
			"estimated_cost": {Type: genai.TypeNumber},
		},
		Required: []string{"name"},
	}

	orderSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":        {Type: genai.TypeString},
			"day":         {Type: genai.TypeInteger},
			"order_index": {Type: genai.TypeInteger},
		},
		Required: []string{"name", "day", "order_index"},
	}

	tripInfoSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":       {Type: genai.TypeString},
			"total_days": {Type: genai.TypeInteger},
			"start_date": {Type: genai.TypeString, Description: "ISO date, e.g. 2026-03-14"},
			"end_date":   {Type: genai.TypeString},
		},
	}

	placeSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":   {Type: genai.TypeString},
			"reason": {Type: genai.TypeString},
			"rating": {Type: genai.TypeNumber},
		},
		Required: []string{"name"},
	}

	actionSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"action":           {Type: genai.TypeString, Enum: actionTypes},
			"destinations":     {Type: genai.TypeArray, Items: destinationSchema},
			"day":              {Type: genai.TypeInteger},
			"location_context": {Type: genai.TypeString},
			"names":            {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"order":            {Type: genai.TypeArray, Items: orderSchema},
			"name":             {Type: genai.TypeString},
			"target_day":       {Type: genai.TypeInteger},
			"target_position":  {Type: genai.TypeInteger},
			"trip_info":        tripInfoSchema,
			"places":           {Type: genai.TypeArray, Items: placeSchema},
			"question":         {Type: genai.TypeString},
		},
		Required: []string{"action"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"reply":         {Type: genai.TypeString, Description: "Conversational reply in the user's language"},
			"actions":       {Type: genai.TypeArray, Items: actionSchema},
			"suggest_login": {Type: genai.TypeBoolean},
		},
		Required: []string{"reply", "actions"},
	}
}
