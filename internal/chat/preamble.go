// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"time"
)

// DefaultAssistantName is the persona name used in the preamble and output.
const DefaultAssistantName = "Luna"

const (
	preambleTimeLayout = "03:04 PM"
	preambleDayLayout  = "Monday, January 02, 2006"
)

// Preamble builds the system instruction for an assistant named name at the
// given moment. The caller decides when "now" is; a Session computes it once.
func Preamble(name string, now time.Time) string {
	if name == "" {
		name = DefaultAssistantName
	}
	return fmt.Sprintf(
		"Always respond in dialogue only, without any actions, stage directions, or physical descriptions. "+
			"DO NOT IN ANY CIRCUMSTANCES DESCRIBE YOUR PHYSICAL MOVEMENTS OR ACTIONS. "+
			"Your name is %s. "+
			"The current time is %s on %s. Use this information when relevant to provide context-aware responses, especially for time- or day-related queries.",
		name,
		now.Format(preambleTimeLayout),
		now.Format(preambleDayLayout),
	)
}
