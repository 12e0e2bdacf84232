package assistant

import (
	"strings"

	"github.com/Karan-0412/nabha/internal/model"
)

var medicalKeywords = []string{
	"pain", "hurt", "fever", "temperature", "cough", "cold", "sick", "ill", "symptom",
	"health", "medicine", "doctor", "hospital", "disease", "infection", "headache",
	"stomach", "chest", "breathing", "blood", "heart", "diabetes", "pressure", "covid",
	"vaccine", "vaccination",
}

type localized struct {
	en string
	hi string
}

func (l localized) in(lang model.Language) string {
	if lang == model.LanguageHindi {
		return l.hi
	}
	return l.en
}

var (
	notMedical = localized{
		en: "I'm Dr. AI, your medical assistant. I can only help with health and medical questions. Please ask me about your health concerns, symptoms, or medical questions.",
		hi: "मैं डॉ. AI हूं, आपका मेडिकल असिस्टेंट। मैं केवल स्वास्थ्य और चिकित्सा संबंधी प्रश्नों में मदद कर सकता हूं। कृपया अपने स्वास्थ्य संबंधी चिंताओं, लक्षणों या चिकित्सा प्रश्नों के बारे में पूछें।",
	}
	painReply = localized{
		en: "I apologize that I cannot connect to the AI service right now. For pain, please consult a doctor immediately.",
		hi: "मुझे खेद है कि मैं अभी AI सेवा से जुड़ नहीं पा रहा हूं। दर्द के लिए, कृपया तुरंत डॉक्टर से सलाह लें।",
	}
	feverReply = localized{
		en: "For fever, please check your temperature and consult a doctor.",
		hi: "बुखार के लिए, कृपया अपना तापमान मापें और डॉक्टर से सलाह लें।",
	}
	coughReply = localized{
		en: "For cough or cold, rest and drink warm water. If symptoms worsen, see a doctor.",
		hi: "खांसी या सर्दी के लिए, आराम करें और गर्म पानी पिएं। यदि लक्षण बिगड़ें तो डॉक्टर से मिलें।",
	}
	defaultReply = localized{
		en: "I apologize that I cannot connect to the AI service right now. Please consult a doctor or try again later.",
		hi: "मुझे खेद है कि मैं अभी AI सेवा से जुड़ नहीं पा रहा हूं। कृपया डॉक्टर से सलाह लें या बाद में पुनः प्रयास करें।",
	}
)

// FallbackChat picks a canned reply from keywords in message.
func FallbackChat(message string, lang model.Language) string {
	lower := strings.ToLower(message)

	medical := false
	for _, kw := range medicalKeywords {
		if strings.Contains(lower, kw) {
			medical = true
			break
		}
	}
	if !medical {
		return notMedical.in(lang)
	}

	switch {
	case strings.Contains(lower, "pain") || strings.Contains(lower, "hurt"):
		return painReply.in(lang)
	case strings.Contains(lower, "fever") || strings.Contains(lower, "temperature"):
		return feverReply.in(lang)
	case strings.Contains(lower, "cough") || strings.Contains(lower, "cold"):
		return coughReply.in(lang)
	}
	return defaultReply.in(lang)
}

func FallbackSymptoms(lang model.Language) model.SymptomAnalysis {
	if lang == model.LanguageHindi {
		return model.SymptomAnalysis{
			PossibleConditions: []string{"सामान्य स्वास्थ्य चिंता"},
			Severity:           model.SeverityMedium,
			Recommendations:    []string{"डॉक्टर से सलाह लें", "लक्षणों की निगरानी करें", "आराम करें"},
			ShouldSeeDoctor:    true,
			Urgency:            "within_week",
		}
	}
	return model.SymptomAnalysis{
		PossibleConditions: []string{"General Health Concern"},
		Severity:           model.SeverityMedium,
		Recommendations:    []string{"Consult a doctor", "Monitor symptoms", "Get rest"},
		ShouldSeeDoctor:    true,
		Urgency:            "within_week",
	}
}

func FallbackImage(lang model.Language) model.ImageAnalysis {
	if lang == model.LanguageHindi {
		return model.ImageAnalysis{
			Description:        "चित्र का विश्लेषण उपलब्ध नहीं है। कृपया डॉक्टर से सलाह लें।",
			PossibleConditions: []string{"विशेषज्ञ राय आवश्यक"},
			Confidence:         0.5,
			Recommendations:    []string{"चिकित्सक से परामर्श करें"},
		}
	}
	return model.ImageAnalysis{
		Description:        "Image analysis not available. Please consult a doctor.",
		PossibleConditions: []string{"Expert opinion needed"},
		Confidence:         0.5,
		Recommendations:    []string{"Consult with a healthcare professional"},
	}
}

func FallbackRecommendations() []string {
	return []string{
		"Maintain a balanced diet with fruits and vegetables",
		"Exercise regularly for at least 30 minutes daily",
		"Get 7-8 hours of quality sleep each night",
		"Stay hydrated by drinking plenty of water",
		"Schedule regular health checkups",
	}
}
