/*
Copyright 2025 Finlens Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/finlens/finlens"
	"github.com/finlens/finlens/config"
	"github.com/finlens/finlens/database"
	"github.com/finlens/finlens/internal/notification"
)

// CLI wraps the root Cobra command for the finlens binary.
type CLI struct {
	cmd *cobra.Command
}

// finlensInstance holds the service instance and its configuration, shared by
// all subcommands once preRun has done its work.
type finlensInstance struct {
	finlens *finlens.Finlens
	cnf     *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the service instance before
// running any command.
func preRun(app *finlensInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("finlens.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		if err := cnf.EnsureDataDir(); err != nil {
			return err
		}

		service, err := setupFinlens(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.finlens = service
		app.cnf = cnf

		return nil
	}
}

// setupFinlens connects the data source and builds the service instance.
func setupFinlens(cfg *config.Configuration) (*finlens.Finlens, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	service, err := finlens.NewFinlens(db)
	if err != nil {
		return nil, fmt.Errorf("error creating finlens: %v", err)
	}
	return service, nil
}

// NewCLI builds the command-line interface with its server and migration
// subcommands.
func NewCLI() *CLI {
	var configFile string
	b := &finlensInstance{}

	var rootCmd = &cobra.Command{
		Use:   "finlens",
		Short: "Invoice extraction and reconciliation service",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./finlens.json", "Configuration file for finlens")

	rootCmd.PersistentPreRunE = preRun(b)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(migrateCommands(b))

	return &CLI{cmd: rootCmd}
}

func (w CLI) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
