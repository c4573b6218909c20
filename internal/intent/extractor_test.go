package intent

import (
	"testing"

	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestExtractSlots_ProgrammingLaptop(t *testing.T) {
	slots := ExtractSlots("I need a lightweight laptop for programming under $1200")

	assert.Equal(t, models.DeviceLaptop, slots.DeviceType)
	assert.Equal(t, models.UseCaseProgramming, slots.UseCase)
	assert.Equal(t, models.WeightLight, slots.Weight)
	assert.Equal(t, models.OSNone, slots.OS)
	assert.Equal(t, 1200.0, slots.BudgetMax.MustGet())
	assert.True(t, slots.BudgetMin.IsAbsent())
	assert.True(t, slots.RAMGB.IsAbsent())
}

func TestExtractSlots_HugeBudgetKept(t *testing.T) {
	slots := ExtractSlots("any laptop under $99999999999999999999")

	v, ok := slots.BudgetMax.Get()
	assert.True(t, ok)
	assert.InDelta(t, 1e20, v, 1e6)
}

func TestExtractSlots_SocialMediaPhone(t *testing.T) {
	slots := ExtractSlots("Phone for TikTok and Instagram with good video")

	assert.Equal(t, models.DevicePhone, slots.DeviceType)
	assert.Equal(t, models.UseCaseSocialMedia, slots.UseCase)
	assert.Equal(t, models.CameraVideo, slots.Camera)
	assert.False(t, slots.HasBudget())
}

func TestExtractSlots_Table(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, s models.SlotSet)
	}{
		{
			name:  "between overrides under",
			input: "tablet under 1000, ideally between $300 and $600",
			check: func(t *testing.T, s models.SlotSet) {
				assert.Equal(t, 300.0, s.BudgetMin.MustGet())
				assert.Equal(t, 600.0, s.BudgetMax.MustGet())
				assert.Equal(t, models.DeviceTablet, s.DeviceType)
			},
		},
		{
			name:  "inverted range kept verbatim",
			input: "between 900 and 400",
			check: func(t *testing.T, s models.SlotSet) {
				assert.Equal(t, 900.0, s.BudgetMin.MustGet())
				assert.Equal(t, 400.0, s.BudgetMax.MustGet())
			},
		},
		{
			name:  "macbook implies apple laptop",
			input: "Is a MacBook good for coding?",
			check: func(t *testing.T, s models.SlotSet) {
				assert.Equal(t, models.OSApple, s.OS)
				assert.Equal(t, models.DeviceLaptop, s.DeviceType)
				assert.Equal(t, models.UseCaseProgramming, s.UseCase)
			},
		},
		{
			name:  "android phone",
			input: "cheap android for my mom",
			check: func(t *testing.T, s models.SlotSet) {
				assert.Equal(t, models.OSAndroid, s.OS)
				assert.Equal(t, models.DevicePhone, s.DeviceType)
			},
		},
		{
			name:  "windows wins over chrome",
			input: "windows or chromebook laptop",
			check: func(t *testing.T, s models.SlotSet) {
				assert.Equal(t, models.OSWindows, s.OS)
			},
		},
		{
			name:  "ram",
			input: "gaming notebook with 32 GB RAM",
			check: func(t *testing.T, s models.SlotSet) {
				assert.Equal(t, 32, s.RAMGB.MustGet())
				assert.Equal(t, models.UseCaseGaming, s.UseCase)
			},
		},
		{
			name:  "overflowing number ignored",
			input: "laptop with 99999999999999999999999 gb ram",
			check: func(t *testing.T, s models.SlotSet) {
				assert.True(t, s.RAMGB.IsAbsent())
			},
		},
		{
			name:  "camera without video",
			input: "phone with a great camera",
			check: func(t *testing.T, s models.SlotSet) {
				assert.Equal(t, models.CameraGreat, s.Camera)
			},
		},
		{
			name:  "what is takes priority over explain",
			input: "What is OLED? also explain refresh rate",
			check: func(t *testing.T, s models.SlotSet) {
				assert.Equal(t, "oled", s.EducationTerm)
			},
		},
		{
			name:  "explain",
			input: "explain refresh rate",
			check: func(t *testing.T, s models.SlotSet) {
				assert.Equal(t, "refresh rate", s.EducationTerm)
			},
		},
		{
			name:  "nothing recognized",
			input: "",
			check: func(t *testing.T, s models.SlotSet) {
				assert.Equal(t, models.SlotSet{}, s)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, ExtractSlots(tt.input))
		})
	}
}

func TestExtractSlots_Deterministic(t *testing.T) {
	input := "thin windows laptop for office work between 400 and 700"
	assert.Equal(t, ExtractSlots(input), ExtractSlots(input))
}
