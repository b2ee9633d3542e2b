package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Execute(t *testing.T) {
	t.Run("no args shows help", func(t *testing.T) {
		cleanEnv(t)
		output, err := executeCmd(t)
		assert.NoError(t, err)
		assert.Contains(t, output, "runone")
		assert.Contains(t, output, "Usage:")
	})

	t.Run("help flag", func(t *testing.T) {
		cleanEnv(t)
		output, err := executeCmd(t, "--help")
		assert.NoError(t, err)
		assert.Contains(t, output, "runone")
		assert.Contains(t, output, "only one")
	})

	t.Run("version flag", func(t *testing.T) {
		cleanEnv(t)
		output, err := executeCmd(t, "--version")
		assert.NoError(t, err)
		assert.Equal(t, "runone version "+version+"\n", output)
	})
}

func TestRootCmd_Structure(t *testing.T) {
	t.Run("has expected subcommands", func(t *testing.T) {
		commands := rootCmd.Commands()
		commandNames := make([]string, 0, len(commands))
		for _, cmd := range commands {
			commandNames = append(commandNames, cmd.Name())
		}

		assert.Contains(t, commandNames, "status")
		assert.Contains(t, commandNames, "release")
		assert.Contains(t, commandNames, "clean")
		assert.Contains(t, commandNames, "doctor")
		assert.Contains(t, commandNames, "init")
		assert.Contains(t, commandNames, "update")
		assert.Contains(t, commandNames, "completion")
	})

	t.Run("keeps the classic flag surface", func(t *testing.T) {
		for flag, shorthand := range map[string]string{
			"lockname":   "l",
			"lockgroup":  "g",
			"basedir":    "d",
			"persistent": "n",
		} {
			f := rootCmd.PersistentFlags().Lookup(flag)
			require.NotNil(t, f, flag)
			assert.Equal(t, shorthand, f.Shorthand, flag)
		}

		assert.NotNil(t, rootCmd.PersistentFlags().Lookup("poll"))
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup("max-age"))
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))

		wait := rootCmd.Flags().Lookup("wait")
		require.NotNil(t, wait)
		assert.Equal(t, "w", wait.Shorthand)
	})

	t.Run("defaults match the config defaults", func(t *testing.T) {
		assert.Equal(t, "lock", rootCmd.PersistentFlags().Lookup("lockname").DefValue)
		assert.Equal(t, ".locks", rootCmd.PersistentFlags().Lookup("lockgroup").DefValue)
		assert.Equal(t, ".", rootCmd.PersistentFlags().Lookup("basedir").DefValue)
		assert.Equal(t, "500ms", rootCmd.PersistentFlags().Lookup("poll").DefValue)
	})
}

func TestRootCmd_Description(t *testing.T) {
	assert.Contains(t, rootCmd.Short, "only instance")
	assert.Contains(t, rootCmd.Long, "RUN")
	assert.Contains(t, rootCmd.Long, "INSPECTION")
	assert.Contains(t, rootCmd.Long, "MAINTENANCE")
	assert.Contains(t, rootCmd.Long, "SETUP")
}

func TestCompletionCmd(t *testing.T) {
	t.Run("bash completion", func(t *testing.T) {
		_, err := executeCmd(t, "completion", "bash")
		assert.NoError(t, err)
	})

	t.Run("zsh completion", func(t *testing.T) {
		_, err := executeCmd(t, "completion", "zsh")
		assert.NoError(t, err)
	})

	t.Run("fish completion", func(t *testing.T) {
		_, err := executeCmd(t, "completion", "fish")
		assert.NoError(t, err)
	})

	t.Run("powershell completion", func(t *testing.T) {
		_, err := executeCmd(t, "completion", "powershell")
		assert.NoError(t, err)
	})

	t.Run("invalid shell", func(t *testing.T) {
		_, err := executeCmd(t, "completion", "invalid")
		assert.Error(t, err)
	})

	t.Run("bare completion prints help", func(t *testing.T) {
		// The generated completion parent is not runnable; cobra
		// prints its help and Execute reports no error.
		output, err := executeCmd(t, "completion")
		assert.NoError(t, err)
		assert.Contains(t, output, "Generate the autocompletion script")
		assert.Contains(t, output, "bash")
	})
}
