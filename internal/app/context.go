package app

import (
	"fmt"
	"os"

	"wayline/internal/content"
)

const defaultWorldID = "crossroads"

// ResolveContent picks the active content pack: an explicit file
// override wins, then the workspace wayline.yml, then the built-in
// tutorial world so a fresh workspace is immediately playable.
func ResolveContent(workspace, fileOverride string) (*content.Content, error) {
	if fileOverride != "" {
		return content.FromFile(fileOverride)
	}
	c, err := content.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c, nil
	}
	return content.Default(defaultWorldID), nil
}

// InitContent writes the default content template to the workspace.
// Refuses to overwrite an existing file.
func InitContent(workspace string) (string, error) {
	path := content.Path(workspace)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("content %s already exists", path)
	} else if !os.IsNotExist(err) {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content.GenerateDefault(defaultWorldID)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
