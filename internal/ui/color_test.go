package ui

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"golang.org/x/term"
)

// captureColorOutput captures output from the color package.
// The color package uses color.Output which defaults to os.Stdout.
func captureColorOutput(fn func()) string {
	// Save original state
	oldNoColor := color.NoColor
	oldOutput := color.Output

	// Configure for testing
	color.NoColor = true

	// Create pipe
	r, w, _ := os.Pipe()

	// Set color.Output to our pipe
	color.Output = w

	// Also redirect os.Stdout for fmt.Printf calls
	oldStdout := os.Stdout
	os.Stdout = w

	// Run the function
	fn()

	// Close writer
	w.Close()

	// Restore
	color.Output = oldOutput
	color.NoColor = oldNoColor
	os.Stdout = oldStdout

	// Read output
	var buf bytes.Buffer
	io.Copy(&buf, r)
	r.Close()

	return buf.String()
}

func TestSuccess(t *testing.T) {
	output := captureColorOutput(func() {
		Success("lock acquired")
	})
	assert.Contains(t, output, "lock acquired")
	assert.Contains(t, output, "\n")
}

func TestSuccess_WithArgs(t *testing.T) {
	output := captureColorOutput(func() {
		Success("released %d locks", 3)
	})
	assert.Contains(t, output, "released 3 locks")
}

func TestError(t *testing.T) {
	output := captureColorOutput(func() {
		Error("something failed")
	})
	assert.Contains(t, output, "something failed")
	assert.Contains(t, output, "\n")
}

func TestError_WithArgs(t *testing.T) {
	output := captureColorOutput(func() {
		Error("failed with code %d: %s", 2, "wait timeout")
	})
	assert.Contains(t, output, "failed with code 2: wait timeout")
}

func TestWarning(t *testing.T) {
	output := captureColorOutput(func() {
		Warning("be careful")
	})
	assert.Contains(t, output, "be careful")
	assert.Contains(t, output, "\n")
}

func TestWarning_WithArgs(t *testing.T) {
	output := captureColorOutput(func() {
		Warning("stale lock: held by pid %d", 4242)
	})
	assert.Contains(t, output, "stale lock: held by pid 4242")
}

func TestInfo(t *testing.T) {
	output := captureColorOutput(func() {
		Info("informational message")
	})
	assert.Contains(t, output, "informational message")
	assert.Contains(t, output, "\n")
}

func TestInfo_WithArgs(t *testing.T) {
	output := captureColorOutput(func() {
		Info("version: %s", "1.0.0")
	})
	assert.Contains(t, output, "version: 1.0.0")
}

func TestStep(t *testing.T) {
	output := captureColorOutput(func() {
		Step(1, "first step")
	})
	assert.Contains(t, output, "[1]")
	assert.Contains(t, output, "first step")
	assert.Contains(t, output, "\n")
}

func TestStep_WithArgs(t *testing.T) {
	output := captureColorOutput(func() {
		Step(3, "probing %s", "/var/locks")
	})
	assert.Contains(t, output, "[3]")
	assert.Contains(t, output, "probing /var/locks")
}

func TestHeader(t *testing.T) {
	output := captureColorOutput(func() {
		Header("Section Title")
	})
	assert.Contains(t, output, "Section Title")
	assert.Contains(t, output, "\n")
}

func TestHeader_WithArgs(t *testing.T) {
	output := captureColorOutput(func() {
		Header("Checking %s...", "lockgroup")
	})
	assert.Contains(t, output, "Checking lockgroup...")
}

func TestColorVariables(t *testing.T) {
	// Test that color variables are initialized
	assert.NotNil(t, Red)
	assert.NotNil(t, Green)
	assert.NotNil(t, Yellow)
	assert.NotNil(t, Blue)
	assert.NotNil(t, Cyan)
	assert.NotNil(t, Bold)
}

func TestIsInteractive_MatchesTerminalState(t *testing.T) {
	// The verdict must agree with the underlying terminal probe,
	// whatever environment the tests run in.
	assert.Equal(t, term.IsTerminal(int(os.Stdin.Fd())), IsInteractive())
}

func TestMultipleMessages(t *testing.T) {
	output := captureColorOutput(func() {
		Info("line 1")
		Info("line 2")
		Info("line 3")
	})
	assert.Contains(t, output, "line 1")
	assert.Contains(t, output, "line 2")
	assert.Contains(t, output, "line 3")
}

func TestEmptyMessage(t *testing.T) {
	output := captureColorOutput(func() {
		Info("")
	})
	// Should just have a newline
	assert.Equal(t, "\n", output)
}

func TestSpecialCharacters(t *testing.T) {
	output := captureColorOutput(func() {
		Info("path: /var/locks/backup/backup.locked")
	})
	assert.Contains(t, output, "/var/locks/backup/backup.locked")
}
