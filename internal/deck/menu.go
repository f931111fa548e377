/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package deck

import (
	"fmt"

	"rpyslides/internal/script"
)

type menuState int

const (
	awaitingChoice menuState = iota
	awaitingJump
)

// menuCollector pairs each Choice with the Jump (or return) that follows it.
// A Dialogue inside the menu becomes the prompt.
type menuCollector struct {
	state   menuState
	choices []Choice

	hasPrompt bool
	promptKey string
	prompt    string
}

// feed offers st to the menu. It reports false for statements that end the menu.
func (m *menuCollector) feed(st script.Statement) (bool, error) {
	switch v := st.(type) {
	case script.Choice:
		if m.state == awaitingJump {
			return true, fmt.Errorf("%w: choice %q", ErrMenuUnbound, m.choices[len(m.choices)-1].Text)
		}
		m.choices = append(m.choices, Choice{Text: v.Text})
		m.state = awaitingJump
	case script.Jump:
		if m.state == awaitingChoice {
			return true, fmt.Errorf("%w: jump %q has no choice", ErrMenuUnbound, v.Key)
		}
		m.choices[len(m.choices)-1].Target = v.Key
		m.state = awaitingChoice
	case script.End:
		if m.state == awaitingChoice {
			return false, nil
		}
		m.choices[len(m.choices)-1].Ends = true
		m.state = awaitingChoice
	case script.Dialogue:
		m.hasPrompt = true
		m.promptKey = v.CharacterKey
		m.prompt = v.Text
	default:
		return false, nil
	}
	return true, nil
}

// close checks that the last choice got its jump.
func (m *menuCollector) close() error {
	if m.state == awaitingJump {
		return fmt.Errorf("%w: choice %q", ErrMenuUnbound, m.choices[len(m.choices)-1].Text)
	}
	return nil
}
