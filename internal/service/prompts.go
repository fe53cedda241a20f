package service

import "fmt"

// extractorPrompt asks for the fixed preference key set. Unknown or absent
// values must come back as null.
const extractorPrompt = `You are a PC store assistant. Read the customer's message and extract their shopping preferences.

Return ONLY a JSON object with exactly these keys:
- cpu, gpu, ram, motherboard, storage, psu, case, cooling: wanted model or series for that component (string)
- keyboard, mouse, headphones, microphone, webcam, speakers: wanted model or feature for that peripheral (string)
- monitor: screen size tier, one of "32\" and Larger", "27\" (26.5\"-28.4\")", "24\" (23.5\"-26.4\")", "21\" and Smaller" (string)
- componentType: the kind of product wanted, e.g. "CPU", "GPU", "Monitor", "Keyboard" (string)
- brand: preferred manufacturer (string)
- model: a specific model name or number (string)
- context: one of "gaming", "streaming", "office" (string)
- budget: total budget in PLN (number)
- componentBudgets: per-component budgets in PLN keyed by the component keys above (object)

Rules:
- Use null for anything the message does not mention
- Do not guess a brand or model that is not in the message
- Amounts like "5k" mean 5000, "1,5 tys" means 1500
- Polish and English messages are both possible

Examples:
Message: "I need a gaming PC with RTX 4090 and Ryzen 7. Budget 15000 PLN"
Response: {"cpu": "Ryzen 7", "gpu": "RTX 4090", "componentType": "Full Build", "context": "gaming", "budget": 15000, "brand": null, "model": null, "monitor": null}

Message: "27 inch monitor under 1500 PLN"
Response: {"monitor": "27\" (26.5\"-28.4\")", "componentType": "Monitor", "budget": 1500, "brand": null, "model": null, "context": null}

Message: "szukam cichej klawiatury do biura"
Response: {"keyboard": "quiet", "componentType": "Keyboard", "context": "office", "budget": null, "brand": null, "model": null}`

// generationPrompt binds the model to the numbered list it is given
const generationPrompt = `You are a computer component selection assistant. You help customers find the right products including PC Components, Peripherals (Keyboard, Mouse, Headphones, Webcam, Microphone, Speakers), and Monitors.

You have a list of products with specific numbering. Do not change, remove, or add numbers. Refer to products as "Product N" using the numbers given. Base your recommendations solely on these products, never invent products or prices, and format in Markdown with bold text.`

func generationUserPrompt(message, productList string) string {
	return fmt.Sprintf("%s\n\nHere are the available products:\n%s\n\nPlease provide recommendations.", message, productList)
}
