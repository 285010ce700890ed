package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxSearchResults = 50

// NewFileReaderTool returns the file reader descriptor
func NewFileReaderTool() Descriptor {
	return Descriptor{
		Name:           "file_reader",
		Category:       CategoryFile,
		Description:    "Read content from a file",
		Keywords:       []string{"read file", "open file", "load file"},
		RequiredParams: []string{"filepath"},
		Handler:        readFile,
	}
}

// NewFileWriterTool returns the file writer descriptor
func NewFileWriterTool() Descriptor {
	return Descriptor{
		Name:           "file_writer",
		Category:       CategoryFile,
		Description:    "Write content to a file, creating parent directories as needed",
		Keywords:       []string{"write file", "save file"},
		RequiredParams: []string{"filepath", "content"},
		Handler:        writeFile,
	}
}

// NewListDirTool returns the directory listing descriptor
func NewListDirTool() Descriptor {
	return Descriptor{
		Name:        "list_dir",
		Category:    CategoryFile,
		Description: "List files and subdirectories in a directory (defaults to the current one)",
		Keywords:    []string{"list dir", "list files", "list directory"},
		Handler:     listDir,
	}
}

// NewSearchFilesTool returns the file content search descriptor
func NewSearchFilesTool() Descriptor {
	return Descriptor{
		Name:           "search_files",
		Category:       CategoryFile,
		Description:    "Search text files under a directory for a pattern",
		Keywords:       []string{"search files", "grep"},
		RequiredParams: []string{"pattern"},
		Handler:        searchFiles,
	}
}

func stringParam(params map[string]any, name string) (string, error) {
	value, ok := params[name].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("parameter %s must be a non-empty string", name)
	}
	return value, nil
}

func readFile(_ context.Context, params map[string]any) (any, error) {
	path, err := stringParam(params, "filepath")
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	text := string(content)
	lines := 0
	if text != "" {
		lines = strings.Count(text, "\n") + 1
		if strings.HasSuffix(text, "\n") {
			lines--
		}
	}

	return map[string]any{
		"path":    absPath,
		"content": text,
		"lines":   lines,
	}, nil
}

func writeFile(_ context.Context, params map[string]any) (any, error) {
	path, err := stringParam(params, "filepath")
	if err != nil {
		return nil, err
	}
	content, ok := params["content"].(string)
	if !ok {
		return nil, fmt.Errorf("parameter content must be a string")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return map[string]any{
		"path":  absPath,
		"bytes": len(content),
	}, nil
}

// DirEntry a single list_dir entry
type DirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

func listDir(_ context.Context, params map[string]any) (any, error) {
	path := "."
	if p, ok := params["path"].(string); ok && p != "" {
		path = p
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	out := make([]DirEntry, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		e := DirEntry{Name: entry.Name(), IsDir: entry.IsDir()}
		if !entry.IsDir() {
			e.Size = info.Size()
		}
		out = append(out, e)
	}

	return map[string]any{
		"path":    absPath,
		"entries": out,
	}, nil
}

func searchFiles(ctx context.Context, params map[string]any) (any, error) {
	pattern, err := stringParam(params, "pattern")
	if err != nil {
		return nil, err
	}

	path := "."
	if p, ok := params["path"].(string); ok && p != "" {
		path = p
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	var matches []string
	truncated := false

	err = filepath.Walk(absPath, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Ignore unreadable entries
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if info.IsDir() {
			name := info.Name()
			if filePath != absPath && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}

		if !isTextFile(filePath) {
			return nil
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return nil
		}

		for i, line := range strings.Split(string(content), "\n") {
			if !strings.Contains(line, pattern) {
				continue
			}
			if len(matches) >= maxSearchResults {
				truncated = true
				return filepath.SkipAll
			}
			relPath, _ := filepath.Rel(absPath, filePath)
			matches = append(matches, fmt.Sprintf("%s:%d: %s", relPath, i+1, strings.TrimSpace(line)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return map[string]any{
		"pattern":   pattern,
		"path":      absPath,
		"matches":   matches,
		"truncated": truncated,
	}, nil
}

// isTextFile checks if a file is a text file
func isTextFile(path string) bool {
	textExts := []string{
		".txt", ".md", ".go", ".py", ".js", ".ts", ".jsx", ".tsx",
		".html", ".css", ".json", ".yaml", ".yml", ".xml",
		".sh", ".bash", ".zsh", ".fish",
		".c", ".cpp", ".h", ".hpp", ".java", ".rs", ".rb",
		".php", ".sql", ".toml", ".ini", ".conf", ".cfg",
		".csv", ".log", ".env",
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, textExt := range textExts {
		if ext == textExt {
			return true
		}
	}

	name := filepath.Base(path)
	for _, textName := range []string{"Makefile", "Dockerfile", "README", "LICENSE", "CHANGELOG"} {
		if name == textName {
			return true
		}
	}

	return false
}
