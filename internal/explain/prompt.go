package explain

import (
	"fmt"
	"strings"
)

// Level is the skill level an explanation is written for.
type Level string

const (
	Beginner     Level = "beginner"
	Intermediate Level = "intermediate"
	Advanced     Level = "advanced"
)

// ParseLevel maps s to a Level. Unknown or empty values become Beginner.
func ParseLevel(s string) Level {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case Beginner, Intermediate, Advanced:
		return l
	}
	return Beginner
}

const coach = "You are a concise, accurate chess coach."

var styles = map[Level]string{
	Beginner: "Explain it as you would to a beginner: four to six short bullet points " +
		"in plain words, with no engine jargon.",
	Intermediate: "Back every claim with concrete evidence from the lines, such as " +
		"weak squares, piece activity or king safety.",
	Advanced: "Compare the candidate lines against each other and focus on pawn " +
		"structure and long-term plans.",
}

// SystemPrompt returns the fixed system instruction for level.
func SystemPrompt(level Level) string {
	style, ok := styles[level]
	if !ok {
		style = styles[Beginner]
	}
	return coach + " " + style
}

// UserPrompt embeds the engine summary verbatim.
func UserPrompt(summary, language string) string {
	if language == "" {
		language = "English"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Using the engine summary below, explain in %s:\n", language)
	b.WriteString("- why the best move is good\n")
	b.WriteString("- what is wrong with the played move, if one was played\n")
	b.WriteString("- a principle or pattern to remember next time\n")
	b.WriteString("\n[Engine summary]\n")
	b.WriteString(summary)
	return b.String()
}
