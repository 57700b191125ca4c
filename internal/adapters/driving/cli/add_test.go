package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
)

func TestAddCmd_Use(t *testing.T) {
	assert.Equal(t, "add [content]", addCmd.Use)
}

func TestAddCmd_AddsContent(t *testing.T) {
	retrieval, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"add", "the quarterly report is due friday", "--title", "Reminder"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	require.Len(t, retrieval.added, 1)
	added := retrieval.added[0]
	assert.Equal(t, domain.SourceManual, added.SourceType)
	assert.Equal(t, "Reminder", added.Title)
	assert.Equal(t, "the quarterly report is due friday", added.Content)
	assert.True(t, strings.HasPrefix(added.SourceID, "manual-"), "generated source ID should be prefixed")
	assert.Contains(t, buf.String(), "Added document")
}

func TestAddCmd_KeepsExplicitSourceID(t *testing.T) {
	retrieval, _, cleanup := setupTestServices()
	defer cleanup()

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"add", "pinned note", "--source-id", "note-1"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	require.Len(t, retrieval.added, 1)
	assert.Equal(t, "note-1", retrieval.added[0].SourceID)
}

func TestAddCmd_RequiresContent(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"add"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "stdin")
}

func TestAddCmd_RejectedAdd(t *testing.T) {
	retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.addOK = false

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"add", "some content"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not added")
}
