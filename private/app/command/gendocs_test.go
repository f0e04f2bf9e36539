// Copyright 2026 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package command_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/scion-extn/pkg/private/xtest"
	"github.com/scionproto/scion-extn/private/app/command"
)

func TestGendocs(t *testing.T) {
	dir, cleanup := xtest.TempDir(t)
	defer cleanup()

	root := &cobra.Command{Use: "tool", Short: "Test tool"}
	root.AddCommand(
		&cobra.Command{Use: "inspect", Short: "Inspect things", Run: func(*cobra.Command, []string) {}},
		command.NewGendocs(),
	)
	root.SetArgs([]string{"gendocs", dir})
	require.NoError(t, root.Execute())

	raw, err := os.ReadFile(filepath.Join(dir, "tool_inspect.md"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "(app-tool-inspect)=")
	assert.Contains(t, string(raw), "# tool inspect")
	assert.NotContains(t, string(raw), "Auto generated")

	raw, err = os.ReadFile(filepath.Join(dir, "tool.md"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "tool_inspect")

	_, err = os.Stat(filepath.Join(dir, "tool_gendocs.md"))
	assert.True(t, os.IsNotExist(err), "hidden commands are not documented")
}
