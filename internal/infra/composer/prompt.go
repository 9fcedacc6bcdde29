package composer

import (
	"fmt"
	"strings"

	"birthday-courier/internal/domain/entity"
)

// languageNames maps roster language codes to the names used in prompts.
// Unknown codes are passed through as-is so a new roster language still
// produces a usable instruction.
var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"pl": "Polish",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
	"hi": "Hindi",
	"ar": "Arabic",
	"tr": "Turkish",
	"sv": "Swedish",
}

// buildPrompt constructs the generation prompt for one recipient.
func buildPrompt(recipient *entity.Recipient, charLimit int) string {
	language := languageNames[strings.ToLower(recipient.Language)]
	if language == "" {
		language = recipient.Language
	}

	return fmt.Sprintf(
		"Write a warm, personal birthday message in %s for %s. "+
			"Keep it under %d characters so it fits in an SMS. "+
			"Do not include a subject line or signature. "+
			"Reply with the message text only.",
		language, recipient.Name, charLimit)
}
