package models

import (
	"github.com/samber/mo"
)

type UseCase string

const (
	UseCaseNone        UseCase = ""
	UseCaseProgramming UseCase = "programming"
	UseCaseGaming      UseCase = "gaming"
	UseCaseEveryday    UseCase = "everyday"
	UseCaseSocialMedia UseCase = "social_media"
)

// OSPreference holds the canonical family name sent to the search index.
type OSPreference string

const (
	OSNone     OSPreference = ""
	OSWindows  OSPreference = "Windows"
	OSApple    OSPreference = "Apple"
	OSAndroid  OSPreference = "Android"
	OSChromeOS OSPreference = "ChromeOS"
)

type WeightPreference string

const (
	WeightNone  WeightPreference = ""
	WeightLight WeightPreference = "light"
)

type CameraPreference string

const (
	CameraNone  CameraPreference = ""
	CameraGreat CameraPreference = "great_camera"
	CameraVideo CameraPreference = "video"
)

type DeviceType string

const (
	DeviceNone   DeviceType = ""
	DeviceLaptop DeviceType = "laptop"
	DevicePhone  DeviceType = "phone"
	DeviceTablet DeviceType = "tablet"
)

// SlotSet is the structured intent pulled out of a user's text.
// Empty strings and absent options mean "not expressed".
type SlotSet struct {
	UseCase       UseCase            `json:"use_case,omitempty"`
	OS            OSPreference       `json:"os,omitempty"`
	Weight        WeightPreference   `json:"weight,omitempty"`
	Camera        CameraPreference   `json:"camera,omitempty"`
	RAMGB         mo.Option[int]     `json:"ram"`
	BudgetMin     mo.Option[float64] `json:"budget_min"`
	BudgetMax     mo.Option[float64] `json:"budget_max"`
	DeviceType    DeviceType         `json:"device_type,omitempty"`
	EducationTerm string             `json:"education_query,omitempty"`
}

// WithBudget returns a copy where caller supplied bounds replace the
// extracted ones. Absent options leave the extracted value in place.
func (s SlotSet) WithBudget(min, max mo.Option[float64]) SlotSet {
	if min.IsPresent() {
		s.BudgetMin = min
	}
	if max.IsPresent() {
		s.BudgetMax = max
	}
	return s
}

func (s SlotSet) HasBudget() bool {
	return s.BudgetMin.IsPresent() || s.BudgetMax.IsPresent()
}

// Filters is the closed set of constraints forwarded to retrieval.
type Filters struct {
	DeviceType DeviceType         `json:"device_type,omitempty"`
	OS         OSPreference       `json:"os,omitempty"`
	BudgetMin  mo.Option[float64] `json:"budget_min"`
	BudgetMax  mo.Option[float64] `json:"budget_max"`
}

func FiltersFromSlots(s SlotSet) Filters {
	return Filters{
		DeviceType: s.DeviceType,
		OS:         s.OS,
		BudgetMin:  s.BudgetMin,
		BudgetMax:  s.BudgetMax,
	}
}

// PriceAllowed reports whether a known price sits inside the budget.
// Bounds are applied independently, so an inverted range admits nothing.
func (f Filters) PriceAllowed(price float64) bool {
	if min, ok := f.BudgetMin.Get(); ok && price < min {
		return false
	}
	if max, ok := f.BudgetMax.Get(); ok && price > max {
		return false
	}
	return true
}
