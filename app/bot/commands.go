package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandKind enumerates everything the admin can ask for.
type CommandKind int

const (
	CommandUnknown CommandKind = iota
	CommandStart
	CommandStatus
	CommandFetch
	CommandResend
	CommandApprove
	CommandReject
)

// Command is one parsed admin instruction. ItemID is set for approve and
// reject only.
type Command struct {
	Kind   CommandKind
	ItemID int64
}

// ParseCommand maps a text message to a command. Bot-mention suffixes
// ("/status@curator_bot") are tolerated.
func ParseCommand(text string) Command {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{Kind: CommandUnknown}
	}

	name := strings.Fields(text)[0]
	if at := strings.Index(name, "@"); at > 0 {
		name = name[:at]
	}

	switch name {
	case "/start":
		return Command{Kind: CommandStart}
	case "/status":
		return Command{Kind: CommandStatus}
	case "/fetch":
		return Command{Kind: CommandFetch}
	case "/resend":
		return Command{Kind: CommandResend}
	default:
		return Command{Kind: CommandUnknown}
	}
}

// ParseCallback maps inline button data ("approve:17", "reject:17") to a
// command.
func ParseCallback(data string) (Command, error) {
	action, rawID, found := strings.Cut(data, ":")
	if !found {
		return Command{}, fmt.Errorf("malformed callback data: %q", data)
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return Command{}, fmt.Errorf("malformed item id in callback %q: %w", data, err)
	}

	switch action {
	case "approve":
		return Command{Kind: CommandApprove, ItemID: id}, nil
	case "reject":
		return Command{Kind: CommandReject, ItemID: id}, nil
	default:
		return Command{}, fmt.Errorf("unknown callback action: %q", action)
	}
}

// CallbackData builds the inline button payload for an item decision.
func CallbackData(approve bool, itemID int64) string {
	if approve {
		return fmt.Sprintf("approve:%d", itemID)
	}
	return fmt.Sprintf("reject:%d", itemID)
}
