package audit

import "strings"

// ActionResource holds action and resource derived from an admin command name.
type ActionResource struct {
	Action   string
	Resource string
}

// Command overrides: these read better in the audit trail than the derived verb/noun split.
var commandOverrides = map[string]ActionResource{
	"addchannel":    {Action: "channel_added", Resource: "channel"},
	"removechannel": {Action: "channel_removed", Resource: "channel"},
	"broadcast":     {Action: "broadcast", Resource: "user"},
	"addcontent":    {Action: "ingestion_started", Resource: "content"},
	"cancel":        {Action: "ingestion_cancelled", Resource: "content"},
}

// ParseCommand returns action and resource for an admin command ("/addchannel", "addchannel@Bot" or "addchannel").
// Action is a verb (add, remove, set, list, get or the lowercase command); resource is the remaining noun.
func ParseCommand(command string) ActionResource {
	cmd := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(command), "/"))
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	if cmd == "" {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	if ar, ok := commandOverrides[cmd]; ok {
		return ar
	}
	for _, verb := range []string{"add", "remove", "set", "list", "get"} {
		if strings.HasPrefix(cmd, verb) && len(cmd) > len(verb) {
			return ActionResource{Action: verb, Resource: cmd[len(verb):]}
		}
	}
	return ActionResource{Action: cmd, Resource: "bot"}
}
