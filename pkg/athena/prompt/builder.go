// Package prompt assembles generation prompts and derived session titles.
package prompt

import (
	"strings"
	"unicode/utf8"

	"athena-be/internal/constant"
)

// Build joins the instruction block and the raw query with a blank line.
// The query is forwarded as-is, whatever its length.
func Build(instruction, query string) string {
	var sb strings.Builder
	sb.Grow(len(instruction) + len(constant.UserQueryLabel) + len(query) + 3)
	sb.WriteString(instruction)
	sb.WriteString("\n\n")
	sb.WriteString(constant.UserQueryLabel)
	sb.WriteString("\n")
	sb.WriteString(query)
	return sb.String()
}

// DeriveTitle truncates the first user message to SessionTitleMaxLength
// runes and appends an ellipsis when anything was cut.
func DeriveTitle(firstMessage string) string {
	title := strings.TrimSpace(firstMessage)
	if utf8.RuneCountInString(title) <= constant.SessionTitleMaxLength {
		return title
	}
	runes := []rune(title)
	return string(runes[:constant.SessionTitleMaxLength]) + constant.SessionTitleEllipsis
}
