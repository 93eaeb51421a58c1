// -----------------------------------------------------------------------
// TripAction - Typed vocabulary of trip-mutating intents extracted from
// LLM responses. This is the trust boundary against model output: every
// rejection is a value, never a panic.
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ActionType discriminates the TripAction union.
type ActionType string

const (
	ActionAddDestinations     ActionType = "ADD_DESTINATIONS"
	ActionRemoveDestinations  ActionType = "REMOVE_DESTINATIONS"
	ActionReorderDestinations ActionType = "REORDER_DESTINATIONS"
	ActionMoveDestination     ActionType = "MOVE_DESTINATION"
	ActionUpdateTripInfo      ActionType = "UPDATE_TRIP_INFO"
	ActionModifyTrip          ActionType = "MODIFY_TRIP"
	ActionRecommendPlaces     ActionType = "RECOMMEND_PLACES"
	ActionAskPersonalInfo     ActionType = "ASK_PERSONAL_INFO"
	ActionNoAction            ActionType = "NO_ACTION"
)

// knownActions is the closed set of valid discriminants. Anything outside
// this set is rejected, never coerced.
var knownActions = map[ActionType]struct{}{
	ActionAddDestinations:     {},
	ActionRemoveDestinations:  {},
	ActionReorderDestinations: {},
	ActionMoveDestination:     {},
	ActionUpdateTripInfo:      {},
	ActionModifyTrip:          {},
	ActionRecommendPlaces:     {},
	ActionAskPersonalInfo:     {},
	ActionNoAction:            {},
}

// KnownAction reports whether t is one of the nine valid discriminants.
func KnownAction(t ActionType) bool {
	_, ok := knownActions[t]
	return ok
}

// DestinationInput is one requested destination inside ADD_DESTINATIONS.
type DestinationInput struct {
	Name          string    `json:"name" validate:"required"`
	HintAddress   string    `json:"hintAddress,omitempty"`
	MinHours      float64   `json:"minHours,omitempty" validate:"omitempty,gte=0,lte=24"`
	PlaceType     PlaceType `json:"place_type,omitempty" validate:"omitempty,oneof=tourist_attraction lodging restaurant"`
	VisitDuration int       `json:"visit_duration,omitempty" validate:"omitempty,min=15,max=480"` // minutes
	EstimatedCost float64   `json:"estimated_cost,omitempty" validate:"omitempty,gte=0"`
}

// OrderEntry assigns a destination (by name) a day and position within it.
type OrderEntry struct {
	Name       string `json:"name" validate:"required"`
	Day        int    `json:"day" validate:"gte=1"`
	OrderIndex int    `json:"order_index" validate:"gte=1"`
}

// TripInfoPatch carries partial trip metadata updates.
type TripInfoPatch struct {
	Name      string `json:"name,omitempty"`
	TotalDays int    `json:"total_days,omitempty" validate:"omitempty,gte=1,lte=60"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// RecommendedPlace is one suggestion inside RECOMMEND_PLACES.
type RecommendedPlace struct {
	Name   string  `json:"name" validate:"required"`
	Reason string  `json:"reason,omitempty"`
	Rating float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
}

// TripAction is the tagged union of trip-mutating intents. Exactly one
// discriminant per instance; the payload fields relevant to that
// discriminant are validated by ParseTurnResult.
type TripAction struct {
	Action ActionType `json:"action" validate:"required"`

	// ADD_DESTINATIONS
	Destinations    []DestinationInput `json:"destinations,omitempty" validate:"omitempty,dive"`
	Day             int                `json:"day,omitempty" validate:"omitempty,gte=1"`
	LocationContext string             `json:"location_context,omitempty"`

	// REMOVE_DESTINATIONS
	Names []string `json:"names,omitempty"`

	// REORDER_DESTINATIONS
	Order []OrderEntry `json:"order,omitempty" validate:"omitempty,dive"`

	// MOVE_DESTINATION
	Name           string `json:"name,omitempty"`
	TargetDay      int    `json:"target_day,omitempty" validate:"omitempty,gte=1"`
	TargetPosition int    `json:"target_position,omitempty" validate:"omitempty,gte=1"`

	// UPDATE_TRIP_INFO / MODIFY_TRIP
	TripInfo *TripInfoPatch `json:"trip_info,omitempty"`

	// RECOMMEND_PLACES
	Places []RecommendedPlace `json:"places,omitempty" validate:"omitempty,dive"`

	// ASK_PERSONAL_INFO
	Question string `json:"question,omitempty"`
}

// AiTurnResult is one validated LLM turn: a reply plus zero or more actions.
// Actions is never nil after ParseTurnResult so consumers never branch on
// absence.
type AiTurnResult struct {
	Reply        string       `json:"reply" validate:"required"`
	Actions      []TripAction `json:"actions"`
	SuggestLogin bool         `json:"suggest_login,omitempty"`
}

// SchemaError is a structured validation rejection naming the offending path.
type SchemaError struct {
	Path string
	Msg  string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("schema: %s", e.Msg)
	}
	return fmt.Sprintf("schema: %s: %s", e.Path, e.Msg)
}

var validate = validator.New()

// ParseTurnResult decodes and validates raw LLM output into an AiTurnResult.
// Input is model-controlled JSON; unknown discriminants, missing required
// fields, and out-of-range values are rejected with a *SchemaError.
func ParseTurnResult(raw []byte) (*AiTurnResult, error) {
	text := stripCodeFence(string(raw))

	var result AiTurnResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, &SchemaError{Path: "$", Msg: fmt.Sprintf("malformed JSON: %v", err)}
	}

	if strings.TrimSpace(result.Reply) == "" {
		return nil, &SchemaError{Path: "$.reply", Msg: "reply is required"}
	}

	if result.Actions == nil {
		result.Actions = []TripAction{}
	}

	for i := range result.Actions {
		if err := validateAction(&result.Actions[i], i); err != nil {
			return nil, err
		}
	}

	if err := validate.Struct(&result); err != nil {
		return nil, schemaErrorFromValidator(err)
	}

	return &result, nil
}

// validateAction enforces per-variant required fields beyond struct tags.
func validateAction(a *TripAction, idx int) error {
	path := fmt.Sprintf("$.actions[%d]", idx)

	if a.Action == "" {
		return &SchemaError{Path: path + ".action", Msg: "missing action discriminant"}
	}
	if !KnownAction(a.Action) {
		return &SchemaError{Path: path + ".action", Msg: fmt.Sprintf("unknown action %q", a.Action)}
	}

	switch a.Action {
	case ActionAddDestinations:
		if len(a.Destinations) == 0 {
			return &SchemaError{Path: path + ".destinations", Msg: "ADD_DESTINATIONS requires at least one destination"}
		}
	case ActionRemoveDestinations:
		if len(a.Names) == 0 {
			return &SchemaError{Path: path + ".names", Msg: "REMOVE_DESTINATIONS requires at least one name"}
		}
	case ActionReorderDestinations:
		if len(a.Order) == 0 {
			return &SchemaError{Path: path + ".order", Msg: "REORDER_DESTINATIONS requires an order list"}
		}
	case ActionMoveDestination:
		if a.Name == "" {
			return &SchemaError{Path: path + ".name", Msg: "MOVE_DESTINATION requires a name"}
		}
		if a.TargetDay < 1 {
			return &SchemaError{Path: path + ".target_day", Msg: "MOVE_DESTINATION requires target_day >= 1"}
		}
	case ActionUpdateTripInfo, ActionModifyTrip:
		if a.TripInfo == nil {
			return &SchemaError{Path: path + ".trip_info", Msg: fmt.Sprintf("%s requires trip_info", a.Action)}
		}
	}

	return nil
}

// schemaErrorFromValidator maps a go-playground validation failure to a
// SchemaError naming the first offending field.
func schemaErrorFromValidator(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		ve := verrs[0]
		return &SchemaError{
			Path: "$." + strings.ToLower(ve.Namespace()),
			Msg:  fmt.Sprintf("failed %q constraint", ve.Tag()),
		}
	}
	return &SchemaError{Path: "$", Msg: err.Error()}
}

// stripCodeFence removes markdown code fences that LLMs sometimes wrap
// around JSON output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
