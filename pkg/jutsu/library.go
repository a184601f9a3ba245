package jutsu

// Categories used by the default library
const (
	CategoryEarth     = "earth"
	CategoryWind      = "wind"
	CategoryFire      = "fire"
	CategoryWater     = "water"
	CategoryLightning = "lightning"
	CategoryNeutral   = "neutral"
)

// DefaultDefinitions returns the built-in capability library.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			ID:          "parse_invoice",
			Title:       "Invoice Parsing Jutsu",
			Description: "Extract structured invoice data",
			Category:    CategoryEarth,
			Template: `Parse this invoice into JSON.
Schema: {{"client": "name", "lineItems": [{{"description": "what", "quantity": number, "rate": number}}]}}
Input: "{text}"
Output ONLY valid JSON:`,
		},
		{
			ID:          "parse_contact",
			Title:       "Contact Extraction Jutsu",
			Description: "Extract contact information",
			Category:    CategoryEarth,
			Template: `Extract contact info as JSON.
Schema: {{"name": "string", "email": "string|null", "phone": "string|null", "company": "string|null"}}
Input: "{text}"
Output ONLY valid JSON:`,
		},
		{
			ID:          "summarize",
			Title:       "Condensation Jutsu",
			Description: "Condense text to essence",
			Category:    CategoryWind,
			Template: `Summarize in 1-2 sentences:
{text}

Summary:`,
		},
		{
			ID:          "email_draft",
			Title:       "Messenger Bird Jutsu",
			Description: "Draft professional emails",
			Category:    CategoryWind,
			Template: `Write a brief professional email.
To: {recipient}
Subject: {subject}
Key points: {points}

Email:`,
		},
		{
			ID:          "dialectic",
			Title:       "Thesis-Antithesis-Synthesis Jutsu",
			Description: "Dialectical analysis",
			Category:    CategoryFire,
			Template: `Analyze dialectically:
Problem: {problem}

THESIS (current state):
ANTITHESIS (what opposes it):
SYNTHESIS (higher unity):`,
		},
		{
			ID:          "critique",
			Title:       "Critical Eye Jutsu",
			Description: "Balanced critique",
			Category:    CategoryFire,
			Template: `Critique this briefly (strengths & weaknesses):
{content}

Critique:`,
		},
		{
			ID:          "translate",
			Title:       "Universal Tongue Jutsu",
			Description: "Language translation",
			Category:    CategoryWater,
			Template: `Translate to {language}:
{text}

Translation:`,
		},
		{
			ID:          "rephrase",
			Title:       "Mirror Reflection Jutsu",
			Description: "Rephrase in different styles",
			Category:    CategoryWater,
			Template: `Rephrase this in {style} style:
{text}

Rephrased:`,
		},
		{
			ID:          "calculate",
			Title:       "Lightning Calculator Jutsu",
			Description: "Mathematical calculation",
			Category:    CategoryLightning,
			Template: `Calculate: {expression}
Return ONLY the number:`,
		},
		{
			ID:          "estimate",
			Title:       "Foresight Jutsu",
			Description: "Estimation with reasoning",
			Category:    CategoryLightning,
			Template: `Estimate {what} based on: {context}
Give a single number with brief reasoning:`,
		},
	}
}

// DefaultLibrary compiles the built-in capabilities.
func DefaultLibrary() []*Capability {
	defs := DefaultDefinitions()
	caps := make([]*Capability, 0, len(defs))
	for _, def := range defs {
		caps = append(caps, MustCompile(def))
	}
	return caps
}
