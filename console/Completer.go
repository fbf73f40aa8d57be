package console

import (
	"github.com/c-bata/go-prompt"
)

// completer produces go-prompt suggestions from the command table.
type completer struct {
	camera CameraController
}

func (c *completer) Complete(d prompt.Document) []prompt.Suggest {
	words := splitWords(d.TextBeforeCursor())

	// First word: command names and aliases.
	if len(words) <= 1 {
		return prompt.FilterHasPrefix(commandNameCandidates(), d.GetWordBeforeCursor(), true)
	}

	// Later words: delegate to the command's own candidates.
	for _, def := range CommandTable {
		if def.Name != words[0] {
			continue
		}
		if def.GetCandidatesFunc == nil {
			return []prompt.Suggest{}
		}
		return prompt.FilterHasPrefix(def.GetCandidatesFunc(c.camera, d), d.GetWordBeforeCursor(), true)
	}

	return []prompt.Suggest{}
}

// commandNameCandidates suggests every command name with its summary.
func commandNameCandidates() []prompt.Suggest {
	suggests := make([]prompt.Suggest, 0, len(CommandTable))
	for _, def := range CommandTable {
		suggests = append(suggests, prompt.Suggest{Text: def.Name, Description: def.Summary})
	}
	return suggests
}

// splitWords splits an input line into words, keeping quoted phrases
// together. A trailing space yields one empty trailing word so callers can
// tell "completing the current word" from "starting the next one".
func splitWords(line string) []string {
	if line == "" {
		return []string{}
	}

	words := make([]string, 0)
	var word string
	inQuote := false
	lastWasSpace := true

	for _, r := range line {
		switch r {
		case ' ', '\t':
			if !inQuote {
				if !lastWasSpace && word != "" {
					words = append(words, word)
					word = ""
				}
				lastWasSpace = true
			} else {
				word += string(r)
				lastWasSpace = false
			}
		case '"', '\'':
			inQuote = !inQuote
			lastWasSpace = false
		default:
			word += string(r)
			lastWasSpace = false
		}
	}

	if word != "" {
		words = append(words, word)
	}

	if lastWasSpace {
		words = append(words, "")
	}

	return words
}
