package prompt

// systemPrompt is the fixed system-role instruction sent with every request.
const systemPrompt = "You are a warm, concise, non-diagnostic companion. Avoid clinical labels and diagnosis."

func SystemPrompt() string {
	return systemPrompt
}

// Render combines a template with the user's entry, quoting the entry with
// triple-quote delimiters. The quoting is naive: an entry containing the
// delimiter can break out of the quoted section.
func Render(template, entry string) string {
	return template + "\n\nUser journal entry:\n\"\"\"\n" + entry + "\n\"\"\""
}
