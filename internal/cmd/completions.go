package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/timwarnock/runone/pkg/multilock"
)

// completeLockNames completes lock names from the configured
// lockgroup, skipping names already on the command line.
func completeLockNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	locks, err := multilock.List(cfg.BasePath, cfg.LockGroup)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	taken := make(map[string]bool, len(args))
	for _, arg := range args {
		taken[arg] = true
	}

	var names []string
	for _, info := range locks {
		if !taken[info.Name] && strings.HasPrefix(info.Name, toComplete) {
			names = append(names, info.Name)
		}
	}

	return names, cobra.ShellCompDirectiveNoFileComp
}

// completeReleaseName completes the single lock name release takes.
func completeReleaseName(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return completeLockNames(cmd, args, toComplete)
}

// init registers dynamic completions once all commands are defined.
func init() {
	releaseCmd.ValidArgsFunction = completeReleaseName
	cleanCmd.ValidArgsFunction = completeLockNames
}
