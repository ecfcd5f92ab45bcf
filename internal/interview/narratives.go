package interview

// Spoken narratives played around the question sequence.
const (
	IntroNarrative = "Welcome! You're about to begin a conversation that puts your memories and experiences at the heart of it all. " +
		"Here's how it works: You'll see a button that says 'Start Recording.' When you're ready, press it—and speak your response out loud. " +
		"There's no need to worry about saying the right thing. Share whatever comes to mind, big or small, at your own pace. " +
		"You can say as much or as little as you'd like—this system is here to listen to what matters to you. " +
		"Your story is yours to tell, and there's no wrong way to begin. Ready? Let's take the first step together."

	OutroNarrative = "Thank you for sharing your stories and memories today. " +
		"Every conversation is a step toward keeping your mind active, your heart connected, and your legacy alive. " +
		"Remember, your experiences and wisdom matter—not just to family, but to the world. " +
		"Whenever you wish to continue, reflect, or simply talk, this space is here for you. " +
		"Until next time, take care of yourself and know that your story continues to inspire."

	HelpMessage = "No problem! You can press 'Get Question' to hear a new question, or press 'Talk' when you're ready to share your answer. " +
		"Take your time—there's no rush. If you'd like to skip a question, just press 'Get Question' again."

	ErrorMessage = "I apologize, but something went wrong. Please try again, or press 'Get Question' for a new question. " +
		"If the problem continues, please let us know so we can help."
)

type Category string

const (
	CategoryOpening     Category = "opening"
	CategoryLightMemory Category = "light_memory"
	CategoryConnection  Category = "connection"
	CategoryDeepening   Category = "deepening"
	CategoryReflective  Category = "reflective"
)

type Question struct {
	ID        string   `json:"id"`
	Prompt    string   `json:"prompt"`
	Category  Category `json:"category"`
	SortIndex int      `json:"sortIndex"`
}

// Questions progress from comfortable openers to reflective prompts.
var Questions = []Question{
	{ID: "name-preference", Prompt: "What name would you like to go by today?", Category: CategoryOpening, SortIndex: 1},
	{ID: "current-feeling", Prompt: "How are you feeling right now?", Category: CategoryOpening, SortIndex: 2},

	{ID: "childhood-place", Prompt: "Can you tell me about where you grew up?", Category: CategoryLightMemory, SortIndex: 3},
	{ID: "favorite-food", Prompt: "What's one favorite food or dish from your childhood?", Category: CategoryLightMemory, SortIndex: 4},
	{ID: "memorable-song", Prompt: "Do you have a song that always brings back memories?", Category: CategoryLightMemory, SortIndex: 5},

	{ID: "important-people", Prompt: "Who has been important in your life—family, friends, mentors?", Category: CategoryConnection, SortIndex: 6},
	{ID: "typical-day", Prompt: "What was a typical day like for you when you were young?", Category: CategoryConnection, SortIndex: 7},
	{ID: "pets-companions", Prompt: "Do you have any pets or companion animals in your story?", Category: CategoryConnection, SortIndex: 8},

	{ID: "smile-moment", Prompt: "What's a moment from your life that makes you smile when you think of it?", Category: CategoryDeepening, SortIndex: 9},
	{ID: "wisdom-lesson", Prompt: "What is one lesson or piece of wisdom you'd like your family to remember?", Category: CategoryDeepening, SortIndex: 10},
	{ID: "overcoming-challenge", Prompt: "Can you share a story about a challenge you faced, and how you overcame it?", Category: CategoryDeepening, SortIndex: 11},

	{ID: "proudest-moment", Prompt: "What are you most proud of in your life?", Category: CategoryReflective, SortIndex: 12},
	{ID: "family-tradition", Prompt: "Is there a tradition or value from your family you hope will continue?", Category: CategoryReflective, SortIndex: 13},
	{ID: "message-to-youth", Prompt: "What message would you give to younger generations about living well?", Category: CategoryReflective, SortIndex: 14},
}

// QuestionsByCategory returns the questions of c in sequence order.
func QuestionsByCategory(c Category) []Question {
	var out []Question
	for _, q := range Questions {
		if q.Category == c {
			out = append(out, q)
		}
	}
	return out
}

// NextQuestion returns the question after index i, or false at the end.
func NextQuestion(i int) (Question, bool) {
	if i+1 < 0 || i+1 >= len(Questions) {
		return Question{}, false
	}
	return Questions[i+1], true
}
