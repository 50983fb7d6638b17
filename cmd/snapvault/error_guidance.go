package main

import (
	"context"
	"errors"
	"io/fs"

	"snapvault/internal/vault"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{"error: " + err.Error()}

	if errors.Is(err, context.Canceled) {
		lines = append(lines, "hint: interrupted; an unfinished snapshot is rolled back and leaves nothing behind.")
		return uniqueLines(lines)
	}

	switch vault.CodeOf(err) {
	case vault.ErrCodeHashAlgorithmMismatch:
		lines = append(lines, "hint: a store keeps the hash algorithm it was created with; set storage.hash_algorithm to match or use another db_path.")
	case vault.ErrCodeInvalidPath:
		lines = append(lines, "hint: snapshot roots must be existing directories.")
	case vault.ErrCodeStoreFailure:
		lines = append(lines, "hint: check db_path (SNAPVAULT_DB) and run: snapvault migrate --inspect")
	}

	if errors.Is(err, fs.ErrPermission) {
		lines = append(lines, "hint: snapvault stops on unreadable files; fix permissions or snapshot a narrower directory.")
	}

	if vault.KindOf(err) == vault.KindIO && errors.Is(err, fs.ErrNotExist) {
		lines = append(lines, "hint: run snapvault check to list blobs whose content is gone.")
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
