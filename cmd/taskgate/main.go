package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "taskgate",
	Short: "Taskgate — role-gated task tracking API",
	Long:  "Taskgate is a multi-tenant task tracking API with a role hierarchy (USER < MANAGER < ADMIN) that gates both which operations a caller may invoke and which records they may see or change.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/taskgate.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
