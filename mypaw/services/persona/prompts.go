package persona

import (
	"fmt"
	"strings"

	"mypaw/mypaw/config"
)

// Prompt templates take the pet's name, breed-or-type, and free-text info.
// The %s order is fixed per template; overrides from the prompt file must
// keep the same verb count.

const defaultGreetingPrompt = `You are a %s named %s with the personality and characteristics typical of a %s. Always respond as if you are this specific pet, with appropriate personality traits, needs, and behaviors. Be playful, loving, and authentic to your breed. Keep responses conversational and pet-like. Your name is %s.

Pet information: %s`

const defaultChatPrompt = `You are a %s named %s with the following characteristics: %s. Always respond as this specific pet with authentic personality traits. Be conversational, loving, and true to your breed's nature. Keep responses under 100 words. Your name is %s and you should refer to yourself by this name when appropriate.

You must respond with ONLY a valid JSON object in this exact format:
{"response": "your pet response here", "reasoning": "brief explanation of why you responded this way based on your breed/personality"}

Do not include any text before or after the JSON object.`

const defaultDietPlanPrompt = `You are a professional veterinary nutritionist. Create a comprehensive weekly diet plan for a %s named %s.

Pet information: %s

Provide a detailed JSON response with this exact structure:
{
  "weekly_plan": {
    "Monday": {
      "breakfast": "specific meal description with portions",
      "lunch": "specific meal description with portions",
      "dinner": "specific meal description with portions",
      "treats": "healthy treat options",
      "notes": "any special considerations for this day"
    },
    ... (continue for all 7 days)
  },
  "nutritional_guidelines": ["guideline 1", "guideline 2", ...],
  "feeding_schedule": "recommended feeding times and frequency",
  "portion_sizes": "general portion size guidelines based on weight/age",
  "special_considerations": ["consideration 1", "consideration 2", ...]
}

Make it breed-specific, healthy, and practical for pet owners.`

const defaultMoodScenarioPrompt = `You are a pet behavior expert. Create an educational mood reading scenario for a %s named %s.

Pet information: %s

Generate a JSON response with this exact structure:
{
  "scenario": "A detailed scenario describing the pet's behavior and body language",
  "correct_mood": "the correct mood/emotion the pet is experiencing",
  "mood_options": ["correct mood", "incorrect option 1", "incorrect option 2", "incorrect option 3"],
  "explanation": "detailed explanation of why this mood is correct, including breed-specific behaviors and body language cues"
}

Make it educational and breed-specific. The scenario should be realistic and help users learn to read their pet's emotions.`

type prompts struct {
	greeting     string
	chat         string
	dietPlan     string
	moodScenario string
}

func newPrompts(ov config.PromptOverrides) prompts {
	p := prompts{
		greeting:     defaultGreetingPrompt,
		chat:         defaultChatPrompt,
		dietPlan:     defaultDietPlanPrompt,
		moodScenario: defaultMoodScenarioPrompt,
	}
	if ov.Greeting != "" {
		p.greeting = ov.Greeting
	}
	if ov.Chat != "" {
		p.chat = ov.Chat
	}
	if ov.DietPlan != "" {
		p.dietPlan = ov.DietPlan
	}
	if ov.MoodScenario != "" {
		p.moodScenario = ov.MoodScenario
	}
	return p
}

func (p prompts) greetingSystem(ctx Context) string {
	return fmt.Sprintf(p.greeting, ctx.BreedOrType, ctx.Name, ctx.BreedOrType, ctx.Name, ctx.Info)
}

func (p prompts) chatSystem(ctx Context) string {
	return fmt.Sprintf(p.chat, ctx.BreedOrType, ctx.Name, ctx.Info, ctx.Name)
}

func (p prompts) dietPlanSystem(ctx Context) string {
	return fmt.Sprintf(p.dietPlan, ctx.BreedOrType, ctx.Name, ctx.Info)
}

func (p prompts) moodScenarioSystem(ctx Context) string {
	return fmt.Sprintf(p.moodScenario, ctx.BreedOrType, ctx.Name, ctx.Info)
}

// Context describes the persona a prompt speaks as.
type Context struct {
	Name        string
	Type        string
	BreedOrType string
	// Info carries the description, characteristics and, when available,
	// today's diet slots.
	Info string
}

func (c Context) valid() bool {
	return strings.TrimSpace(c.Name) != "" && strings.TrimSpace(c.BreedOrType) != ""
}
