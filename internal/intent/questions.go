package intent

import "github.com/Ayash-Bera/device-advisor/internal/models"

const (
	QuestionDeviceType  = "Are you looking for a laptop, phone, or tablet?"
	QuestionDesktopOS   = "Do you prefer Windows, macOS, or ChromeOS?"
	QuestionPhoneOS     = "Do you prefer iOS or Android?"
	QuestionPortability = "Do you prioritize portability (lightweight) or screen size/performance?"
	QuestionCamera      = "Is video quality or photo sharpness more important?"
	QuestionBudget      = "Do you have a target budget range?"
)

// ProposeQuestions lists the follow-ups that would narrow the search
// most, in a fixed order.
func ProposeQuestions(slots models.SlotSet) []string {
	var questions []string

	if slots.DeviceType == models.DeviceNone {
		questions = append(questions, QuestionDeviceType)
	}

	if slots.OS == models.OSNone {
		switch slots.DeviceType {
		case models.DeviceLaptop, models.DeviceTablet:
			questions = append(questions, QuestionDesktopOS)
		case models.DevicePhone:
			questions = append(questions, QuestionPhoneOS)
		}
	}

	if slots.DeviceType == models.DeviceLaptop && slots.UseCase == models.UseCaseProgramming {
		questions = append(questions, QuestionPortability)
	}

	if slots.DeviceType == models.DevicePhone && slots.UseCase == models.UseCaseSocialMedia {
		questions = append(questions, QuestionCamera)
	}

	if !slots.HasBudget() {
		questions = append(questions, QuestionBudget)
	}

	return questions
}
