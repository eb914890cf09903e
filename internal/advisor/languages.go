package advisor

import "strings"

const DefaultLanguage = "en"

var SupportedLanguages = []string{"en", "kn", "hi", "ta"}

var languageInstructions = map[string]string{
	"en": "Respond in English.",
	"kn": "Respond in Kannada (ಕನ್ನಡ). Use native Kannada agricultural terms.",
	"hi": "Respond in Hindi (हिंदी). Use common agricultural Hindi terminology.",
	"ta": "Respond in Tamil (தமிழ்). Use traditional Tamil farming terms.",
}

var errorResponses = map[string]string{
	"en": "⚠️ **Unable to Process Request**\n\nPlease try again or check your sensor connections.",
	"kn": "⚠️ **ವಿನಂತಿಯನ್ನು ಪ್ರಕ್ರಿಯೆಗೊಳಿಸಲು ಸಾಧ್ಯವಾಗಲಿಲ್ಲ**\n\nದಯವಿಟ್ಟು ಮತ್ತೆ ಪ್ರಯತ್ನಿಸಿ ಅಥವಾ ನಿಮ್ಮ ಸೆನ್ಸರ್ ಸಂಪರ್ಕಗಳನ್ನು ಪರಿಶೀಲಿಸಿ.",
	"hi": "⚠️ **अनुरोध संसाधित नहीं हो सका**\n\nकृपया पुनः प्रयास करें या अपने सेंसर कनेक्शन जांचें।",
	"ta": "⚠️ **கோரிக்கையைச் செயல்படுத்த முடியவில்லை**\n\nமீண்டும் முயற்சிக்கவும் அல்லது உங்கள் சென்சார் இணைப்புகளைச் சரிபார்க்கவும்.",
}

// NormalizeLanguage maps anything outside the supported set to English.
func NormalizeLanguage(raw string) string {
	lang := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := languageInstructions[lang]; ok {
		return lang
	}
	return DefaultLanguage
}

func LanguageInstruction(lang string) string {
	return languageInstructions[NormalizeLanguage(lang)]
}

// ErrorResponse is the apology returned when no answer could be produced.
func ErrorResponse(lang string) string {
	return errorResponses[NormalizeLanguage(lang)]
}
