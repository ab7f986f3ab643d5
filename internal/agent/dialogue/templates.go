package dialogue

var faqAnswers = map[string]string{
	"booking":      "Booking is easy: pick a spot from my recommendations, choose your dates and confirm. You'll get a confirmation email right away.",
	"cancellation": "You can cancel for free up to 48 hours before check-in. After that the first night is non-refundable.",
	"pets":         "Many of our spots are pet friendly. Tell me you're bringing a pet and I'll only show places that welcome them.",
	"checkin":      "Check-in usually starts at 2 PM and check-out is by 11 AM. Each listing shows its exact times.",
}

const faqFallback = "I can help you find a camping spot, answer questions about booking, cancellation, pets or check-in, and compare options. What would you like to know?"

var positiveFeedbackReplies = []string{
	"So glad you like it! Want me to check availability or keep looking?",
	"Happy that works for you! Should I find a few more like it?",
	"Great choice! Let me know if you'd like details on any of them.",
}

const (
	negativeFeedbackReply = "Thanks for telling me. I'll leave those out and look for something that fits better. What should I change: location, price or amenities?"
	neutralFeedbackReply  = "Thanks for the feedback! Tell me more about what you're looking for."

	comparisonNeedsResults = "I don't have any spots to compare yet. Tell me what you're looking for and ask for recommendations first."
	comparisonGeneric      = "%s and %s are both good options. Would you like me to compare them by price or by a specific feature?"

	askForCriteria = "I'd love to help you find a camping spot! Where would you like to go, when, and how many people are coming?"
	readyNudge     = "Say \"show me recommendations\" whenever you're ready, or tell me more."
)
