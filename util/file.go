package util

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const maxFilenameLength = 200

var illegalFilenameChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_",
	"/", "_", `\`, "_", "|", "_", "?", "_", "*", "_",
)

// LegalizeFilename replaces characters forbidden on common filesystems
// and shortens overlong names, preserving their extension
func LegalizeFilename(name string) string {
	name = illegalFilenameChars.Replace(name)
	if runes := []rune(name); len(runes) > maxFilenameLength {
		ext := []rune(filepath.Ext(name))
		if len(ext) >= maxFilenameLength {
			ext = nil
		}
		name = string(runes[:maxFilenameLength-len(ext)]) + string(ext)
	}
	return strings.TrimSpace(name)
}

// FileBaseStem returns the file name without directory and extension
func FileBaseStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// FileRemoveIfExists deletes path, tolerating its absence
func FileRemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
