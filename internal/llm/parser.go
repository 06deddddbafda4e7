package llm

import (
	"regexp"
	"strings"
)

// File is one extracted file from completion output.
type File struct {
	Path    string // Relative file path.
	Content string // File body.
}

// pathPattern matches a plausible relative file path with an extension.
var pathPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_./-]*\.[A-Za-z0-9]+$`)

// labelTrimSet strips markdown decoration around a candidate path label.
const labelTrimSet = "`*#_:[]() \t"

// ExtractFiles parses fenced code blocks out of completion text and pairs
// each with a file path taken from the fence info string or the nearest
// preceding label line.
//
// Parsing is best-effort: blocks without a recognizable path are skipped,
// and zero files is a legitimate result the caller must treat as a failed
// generation.
func ExtractFiles(text string) []File {
	lines := strings.Split(text, "\n")

	var files []File
	var lastLabel string
	inBlock := false
	var blockPath string
	var blockLines []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if inBlock {
				if blockPath != "" && len(blockLines) > 0 {
					files = append(files, File{
						Path:    blockPath,
						Content: strings.Join(blockLines, "\n"),
					})
				}
				inBlock = false
				blockPath = ""
				blockLines = nil
				lastLabel = ""
				continue
			}

			inBlock = true
			blockLines = nil
			blockPath = pathFromFenceInfo(strings.TrimPrefix(trimmed, "```"))
			if blockPath == "" {
				blockPath = lastLabel
			}
			continue
		}

		if inBlock {
			blockLines = append(blockLines, line)
			continue
		}

		if candidate := pathFromLabel(trimmed); candidate != "" {
			lastLabel = candidate
		} else if trimmed != "" {
			lastLabel = ""
		}
	}

	return files
}

// pathFromFenceInfo extracts a file path from a fence info string such as
// "html index.html" or "js:app.js".
func pathFromFenceInfo(info string) string {
	info = strings.TrimSpace(info)
	if info == "" {
		return ""
	}
	for _, sep := range []string{":", " "} {
		if idx := strings.LastIndex(info, sep); idx >= 0 {
			info = info[idx+1:]
		}
	}
	return sanitizePath(info)
}

// pathFromLabel extracts a file path from a label line such as
// "**index.html**", "### styles.css" or "File: app.js".
func pathFromLabel(line string) string {
	if line == "" || strings.HasPrefix(line, "```") {
		return ""
	}
	lowered := strings.ToLower(line)
	for _, prefix := range []string{"file:", "filename:", "path:", "//", "#"} {
		if strings.HasPrefix(lowered, prefix) {
			line = line[len(prefix):]
			break
		}
	}
	candidate := strings.Trim(line, labelTrimSet)
	if strings.ContainsAny(candidate, " \t") {
		return ""
	}
	return sanitizePath(candidate)
}

// sanitizePath validates a candidate path and rejects traversal.
func sanitizePath(candidate string) string {
	candidate = strings.TrimSpace(strings.Trim(candidate, labelTrimSet))
	if candidate == "" || len(candidate) > 200 {
		return ""
	}
	if strings.Contains(candidate, "..") || strings.HasPrefix(candidate, "/") {
		return ""
	}
	if !pathPattern.MatchString(candidate) {
		return ""
	}
	return candidate
}
