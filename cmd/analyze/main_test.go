package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"kata_review/internal/report"
)

func TestOutputPath(t *testing.T) {
	dir := filepath.Join("games", "2026")
	assert.Equal(t, filepath.Join(dir, "club_analyzed.yaml"),
		OutputPath(filepath.Join(dir, "club.sgf"), report.FormatYAML, true))
	assert.Equal(t, filepath.Join(dir, "club.pdf"),
		OutputPath(filepath.Join(dir, "club.sgf"), report.FormatPDF, false))
	assert.Equal(t, "noext_analyzed.dot", OutputPath("noext", report.FormatDOT, true))
}
