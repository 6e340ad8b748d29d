package computer

import (
	"strings"

	"github.com/buildkite/shellwords"

	"github.com/zeusync/contentpack/internal/content/computer"
)

// CommandLine is one submitted line split into a command.
type CommandLine struct {
	Raw        string
	Name       string
	Positional []string
	Flags      map[string][]string
}

// Message builds the window message for the line typed at root.
func (l CommandLine) Message(root string) *computer.CommandMessage {
	return &computer.CommandMessage{
		Root:        root,
		CommandName: l.Name,
		RawText:     l.Raw,
		Positional:  l.Positional,
		Flags:       l.Flags,
	}
}

// ParseCommandLine splits raw into a command. The first word names the
// command; a word starting with prefix opens a flag and every later plain
// word belongs to the last opened flag. Words before the first flag are
// positional. Quotes group words the way a POSIX shell does; a line with
// unbalanced quotes is split on whitespace instead. Backslashes are kept
// literally so paths such as NT:\dir survive. Blank input reports false.
func ParseCommandLine(raw, prefix string) (CommandLine, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CommandLine{}, false
	}
	if prefix == "" {
		prefix = computer.DefaultArgumentPrefix
	}

	parts, err := shellwords.SplitPosix(literalBackslashes(raw))
	if err != nil || len(parts) == 0 {
		parts = strings.Fields(raw)
	}

	line := CommandLine{
		Raw:        raw,
		Name:       parts[0],
		Positional: []string{},
		Flags:      map[string][]string{},
	}
	current, inFlag := "", false
	for _, token := range parts[1:] {
		if name, ok := strings.CutPrefix(token, prefix); ok {
			current, inFlag = name, true
			if _, seen := line.Flags[name]; !seen {
				line.Flags[name] = []string{}
			}
			continue
		}
		if inFlag {
			line.Flags[current] = append(line.Flags[current], token)
		} else {
			line.Positional = append(line.Positional, token)
		}
	}
	return line, true
}

// literalBackslashes doubles every backslash outside single quotes, where
// the splitter would otherwise read it as an escape.
func literalBackslashes(raw string) string {
	if !strings.Contains(raw, `\`) {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw) + 4)
	single, double := false, false
	for _, r := range raw {
		switch {
		case r == '\'' && !double:
			single = !single
		case r == '"' && !single:
			double = !double
		case r == '\\' && !single:
			b.WriteRune(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
