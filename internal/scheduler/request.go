package scheduler

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AvailabilityMode selects the availability checker used by the engine.
type AvailabilityMode string

const (
	AvailabilitySubstring AvailabilityMode = "substring"
	AvailabilityStrict    AvailabilityMode = "strict"
)

// Request is the typed generation request.
type Request struct {
	TimeSlots         []string                   `json:"timeSlots" yaml:"timeSlots" validate:"required,min=1,dive,required"`
	Breaks            []string                   `json:"breaks" yaml:"breaks" validate:"omitempty,dive,required"`
	SubjectsPerClass  map[string][]string        `json:"subjectsPerClass" yaml:"subjectsPerClass" validate:"omitempty,dive,dive,required"`
	ClassDetails      []ClassDetail              `json:"classDetails" yaml:"classDetails" validate:"dive"`
	Faculty           []FacultyMember            `json:"faculty" yaml:"faculty" validate:"dive"`
	Rooms             []RoomDetail               `json:"rooms" yaml:"rooms" validate:"dive"`
	Holidays          []string                   `json:"holidays" yaml:"holidays"`
	SpecialDemands    string                     `json:"specialDemands,omitempty" yaml:"specialDemands,omitempty"`
	SubjectCategories map[string]SubjectCategory `json:"subjectCategories,omitempty" yaml:"subjectCategories,omitempty" validate:"omitempty,dive,oneof=theory lab"`
	AvailabilityMode  AvailabilityMode           `json:"availabilityMode,omitempty" yaml:"availabilityMode,omitempty" validate:"omitempty,oneof=substring strict"`
	MaxConsecutive    int                        `json:"maxConsecutive,omitempty" yaml:"maxConsecutive,omitempty" validate:"gte=0"`
}

// ClassDetail describes one class group in the request.
type ClassDetail struct {
	Name     string `json:"name" yaml:"name" validate:"required"`
	Students int    `json:"students" yaml:"students" validate:"gte=1"`
}

// FacultyMember describes one teacher in the request.
type FacultyMember struct {
	Name         string   `json:"name" yaml:"name" validate:"required"`
	Subjects     []string `json:"subjects" yaml:"subjects" validate:"dive,required"`
	Availability string   `json:"availability" yaml:"availability" validate:"required"`
	MaxHours     int      `json:"maxHours" yaml:"maxHours" validate:"gte=1"`
}

// RoomDetail describes one room in the request.
type RoomDetail struct {
	Name     string   `json:"name" yaml:"name" validate:"required"`
	Type     RoomType `json:"type" yaml:"type" validate:"oneof=theory lab"`
	Capacity int      `json:"capacity" yaml:"capacity" validate:"gte=1"`
}

// RawRequest is the string-encoded wire form in which every collection
// arrives as its own JSON document.
type RawRequest struct {
	TimeSlots        string `json:"timeSlots" yaml:"timeSlots"`
	Breaks           string `json:"breaks" yaml:"breaks"`
	SubjectsPerClass string `json:"subjectsPerClass" yaml:"subjectsPerClass"`
	ClassDetails     string `json:"classDetails" yaml:"classDetails"`
	Faculty          string `json:"faculty" yaml:"faculty"`
	Rooms            string `json:"rooms" yaml:"rooms"`
	Holidays         string `json:"holidays" yaml:"holidays"`
	SpecialDemands   string `json:"specialDemands,omitempty" yaml:"specialDemands,omitempty"`
}

// ParseRaw decodes each field of the raw request. The first field that is
// missing or not valid JSON is reported as a ValidationError.
func ParseRaw(raw RawRequest) (Request, error) {
	var req Request
	fields := []struct {
		name  string
		value string
		dest  interface{}
	}{
		{"timeSlots", raw.TimeSlots, &req.TimeSlots},
		{"breaks", raw.Breaks, &req.Breaks},
		{"subjectsPerClass", raw.SubjectsPerClass, &req.SubjectsPerClass},
		{"classDetails", raw.ClassDetails, &req.ClassDetails},
		{"faculty", raw.Faculty, &req.Faculty},
		{"rooms", raw.Rooms, &req.Rooms},
		{"holidays", raw.Holidays, &req.Holidays},
	}
	for _, field := range fields {
		value := strings.TrimSpace(field.value)
		if value == "" {
			return Request{}, &ValidationError{Field: field.name, Reason: "is required"}
		}
		if err := json.Unmarshal([]byte(value), field.dest); err != nil {
			return Request{}, &ValidationError{Field: field.name, Reason: fmt.Sprintf("is not valid JSON: %v", err)}
		}
	}
	req.SpecialDemands = raw.SpecialDemands
	return req, nil
}
