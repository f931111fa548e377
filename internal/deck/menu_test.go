/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package deck

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rpyslides/internal/script"
)

func TestMenuCollectorPairsChoicesWithJumps(t *testing.T) {
	var m menuCollector
	feed := []script.Statement{
		script.Choice{Text: "Yes"},
		script.Dialogue{CharacterKey: "e", Text: "Pick one"},
		script.Jump{Key: "go_yes"},
		script.Choice{Text: "No"},
		script.Jump{Key: "go_no"},
	}
	for _, st := range feed {
		ok, err := m.feed(st)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := m.feed(script.Label{Key: "next"})
	require.NoError(t, err)
	require.False(t, ok, "a label ends the menu")
	require.NoError(t, m.close())

	require.Equal(t, []Choice{{Text: "Yes", Target: "go_yes"}, {Text: "No", Target: "go_no"}}, m.choices)
	require.True(t, m.hasPrompt)
	require.Equal(t, "e", m.promptKey)
	require.Equal(t, "Pick one", m.prompt)
}

func TestMenuCollectorStates(t *testing.T) {
	var m menuCollector
	require.Equal(t, awaitingChoice, m.state)

	_, err := m.feed(script.Jump{Key: "orphan"})
	require.ErrorIs(t, err, ErrMenuUnbound)

	_, err = m.feed(script.Choice{Text: "A"})
	require.NoError(t, err)
	require.Equal(t, awaitingJump, m.state)
	require.ErrorIs(t, m.close(), ErrMenuUnbound)

	_, err = m.feed(script.Choice{Text: "B"})
	require.ErrorIs(t, err, ErrMenuUnbound)
}

func TestMenuCollectorReturningChoice(t *testing.T) {
	var m menuCollector
	for _, st := range []script.Statement{script.Choice{Text: "Quit"}, script.End{}, script.Choice{Text: "Stay"}, script.Jump{Key: "here"}} {
		ok, err := m.feed(st)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := m.feed(script.End{})
	require.NoError(t, err)
	require.False(t, ok, "a return with no open choice ends the menu")
	require.NoError(t, m.close())
	require.Equal(t, []Choice{{Text: "Quit", Ends: true}, {Text: "Stay", Target: "here"}}, m.choices)
}

func TestMenuCollectorEmptyMenu(t *testing.T) {
	var m menuCollector
	ok, err := m.feed(script.End{})
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, m.close())
	require.Empty(t, m.choices)
}
