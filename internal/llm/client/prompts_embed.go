package client

import (
	"embed"
	"strings"
)

// embeddedPrompts holds the built-in prompt templates so packaged executables
// can load them without needing access to the source tree.
//
//go:embed prompts/*.txt
var embeddedPrompts embed.FS

// DefaultSystemInstruction returns the built-in system instruction text.
func DefaultSystemInstruction() string {
	data, err := embeddedPrompts.ReadFile("prompts/system_instruction.txt")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
