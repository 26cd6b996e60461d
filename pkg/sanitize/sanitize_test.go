// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sanitize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/buivan/tosho/pkg/sanitize"
)

/*
TestFileName verifies the upload filename allow-list.
*/
func TestFileName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Naruto v03 c045 (2003).cbz", "Naruto v03 c045 (2003).cbz"},
		{"shell_metachars", "evil;rm -rf$.cbz", "evil_rm -rf_.cbz"},
		{"path_traversal", "../../etc/passwd", "passwd"},
		{"windows_path", `C:\Users\a\comic.cbr`, "comic.cbr"},
		{"empty", "", "upload"},
		{"only_garbage", "???", "upload"},
		{"non_ascii_substituted", "ワンピース 1045.cbz", "_ 1045.cbz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitize.FileName(tt.input))
		})
	}
}

/*
TestFolderName verifies series titles become safe directory names.
*/
func TestFolderName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "One Piece", "One Piece"},
		{"accents_stripped", "Pokémon Adventures", "Pokemon Adventures"},
		{"slashes_substituted", "Fate/Stay Night", "Fate_Stay Night"},
		{"trailing_dots_trimmed", "Vol. 1.", "Vol. 1"},
		{"empty", "", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitize.FolderName(tt.input))
		})
	}
}
