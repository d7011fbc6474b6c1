// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teradata-labs/cocode/internal/storage"
)

var blueprintCmd = &cobra.Command{
	Use:   "blueprint",
	Short: "save and inspect execution-plan records (<home>/blueprints/)",
}

var blueprintSaveCmd = &cobra.Command{
	Use:   "save <id>",
	Short: "save stdin as a blueprint record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		backend, err := openStorage()
		if err != nil {
			return err
		}
		defer backend.Close()
		return backend.Save(cmd.Context(), storage.KindBlueprint, args[0], data)
	},
}

var blueprintShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "print a saved blueprint record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openStorage()
		if err != nil {
			return err
		}
		defer backend.Close()
		data, err := backend.Load(cmd.Context(), storage.KindBlueprint, args[0])
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var blueprintListCmd = &cobra.Command{
	Use:   "list",
	Short: "list saved blueprint ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openStorage()
		if err != nil {
			return err
		}
		defer backend.Close()
		ids, err := backend.List(cmd.Context(), storage.KindBlueprint)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	blueprintCmd.AddCommand(blueprintSaveCmd, blueprintShowCmd, blueprintListCmd)
}

// openStorage constructs the configured persistence backend, defaulting to
// one JSON file per record under --config-dir (spec.md §6's literal
// behavior); --storage/--storage-dsn opt into a SQL-backed store instead.
func openStorage() (storage.Backend, error) {
	return storage.NewBackend(storage.Config{Type: storageType, Root: configDir, DSN: storageDSN})
}
