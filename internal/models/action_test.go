package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTurnResultAddDestinations(t *testing.T) {
	raw := []byte(`{
		"reply": "เพิ่มให้แล้วค่ะ",
		"actions": [{
			"action": "ADD_DESTINATIONS",
			"day": 1,
			"location_context": "Chiang Mai, Thailand",
			"destinations": [
				{"name": "Wat Phra Singh", "minHours": 1.5, "place_type": "tourist_attraction"},
				{"name": "Tha Phae Gate"}
			]
		}]
	}`)

	result, err := ParseTurnResult(raw)
	require.NoError(t, err)

	assert.Equal(t, "เพิ่มให้แล้วค่ะ", result.Reply)
	require.Len(t, result.Actions, 1)

	action := result.Actions[0]
	assert.Equal(t, ActionAddDestinations, action.Action)
	assert.Equal(t, 1, action.Day)
	assert.Equal(t, "Chiang Mai, Thailand", action.LocationContext)
	require.Len(t, action.Destinations, 2)
	assert.Equal(t, "Wat Phra Singh", action.Destinations[0].Name)
	assert.InDelta(t, 1.5, action.Destinations[0].MinHours, 0.001)
}

func TestParseTurnResultStripsCodeFence(t *testing.T) {
	raw := []byte("```json\n{\"reply\": \"ok\", \"actions\": []}\n```")

	result, err := ParseTurnResult(raw)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Reply)
	assert.Empty(t, result.Actions)
}

func TestParseTurnResultNilActionsBecomesEmpty(t *testing.T) {
	result, err := ParseTurnResult([]byte(`{"reply": "hello"}`))
	require.NoError(t, err)
	require.NotNil(t, result.Actions)
	assert.Len(t, result.Actions, 0)
}

func TestParseTurnResultRejectsMalformedJSON(t *testing.T) {
	_, err := ParseTurnResult([]byte(`not json at all`))
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "$", schemaErr.Path)
}

func TestParseTurnResultRejectsMissingReply(t *testing.T) {
	_, err := ParseTurnResult([]byte(`{"actions": []}`))
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "$.reply", schemaErr.Path)
}

func TestParseTurnResultRejectsUnknownAction(t *testing.T) {
	raw := []byte(`{"reply": "ok", "actions": [{"action": "DO_SOMETHING_WEIRD"}]}`)

	_, err := ParseTurnResult(raw)
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "$.actions[0].action", schemaErr.Path)
	assert.Contains(t, schemaErr.Msg, "DO_SOMETHING_WEIRD")
}

func TestParseTurnResultRejectsMissingVariantPayload(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		path string
	}{
		{
			name: "add without destinations",
			raw:  `{"reply": "ok", "actions": [{"action": "ADD_DESTINATIONS"}]}`,
			path: "$.actions[0].destinations",
		},
		{
			name: "remove without names",
			raw:  `{"reply": "ok", "actions": [{"action": "REMOVE_DESTINATIONS"}]}`,
			path: "$.actions[0].names",
		},
		{
			name: "reorder without order",
			raw:  `{"reply": "ok", "actions": [{"action": "REORDER_DESTINATIONS"}]}`,
			path: "$.actions[0].order",
		},
		{
			name: "move without name",
			raw:  `{"reply": "ok", "actions": [{"action": "MOVE_DESTINATION", "target_day": 2}]}`,
			path: "$.actions[0].name",
		},
		{
			name: "move without target day",
			raw:  `{"reply": "ok", "actions": [{"action": "MOVE_DESTINATION", "name": "Wat Arun"}]}`,
			path: "$.actions[0].target_day",
		},
		{
			name: "update without trip info",
			raw:  `{"reply": "ok", "actions": [{"action": "UPDATE_TRIP_INFO"}]}`,
			path: "$.actions[0].trip_info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTurnResult([]byte(tt.raw))
			require.Error(t, err)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, tt.path, schemaErr.Path)
		})
	}
}

func TestParseTurnResultRejectsOutOfRangeValues(t *testing.T) {
	// visit_duration above the 480 minute ceiling
	raw := []byte(`{
		"reply": "ok",
		"actions": [{
			"action": "ADD_DESTINATIONS",
			"destinations": [{"name": "Wat Pho", "visit_duration": 900}]
		}]
	}`)

	_, err := ParseTurnResult(raw)
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
}

func TestParseTurnResultMultipleActions(t *testing.T) {
	raw := []byte(`{
		"reply": "done",
		"actions": [
			{"action": "UPDATE_TRIP_INFO", "trip_info": {"name": "Bangkok Trip", "total_days": 3}},
			{"action": "ADD_DESTINATIONS", "destinations": [{"name": "Grand Palace"}]},
			{"action": "NO_ACTION"}
		]
	}`)

	result, err := ParseTurnResult(raw)
	require.NoError(t, err)
	require.Len(t, result.Actions, 3)
	assert.Equal(t, ActionUpdateTripInfo, result.Actions[0].Action)
	assert.Equal(t, "Bangkok Trip", result.Actions[0].TripInfo.Name)
	assert.Equal(t, ActionNoAction, result.Actions[2].Action)
}

func TestKnownAction(t *testing.T) {
	assert.True(t, KnownAction(ActionRecommendPlaces))
	assert.True(t, KnownAction(ActionAskPersonalInfo))
	assert.False(t, KnownAction(ActionType("TELEPORT")))
	assert.False(t, KnownAction(ActionType("")))
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1}  "))
}
