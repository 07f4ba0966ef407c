package tool

// Tool names known to the dispatcher.
const (
	NameReadFile       = "read_file"
	NameListDirectory  = "list_directory"
	NameSearchFiles    = "search_files"
	NameWriteFile      = "write_file"
	NameEditFile       = "edit_file"
	NameDeleteFile     = "delete_file"
	NameExecuteCommand = "execute_command"
)

// Tier classifies how much user consent a tool needs before it runs.
type Tier int

const (
	// TierSafe tools run without approval.
	TierSafe Tier = iota
	// TierApprovalRequired tools prompt unless session auto-approve is on.
	TierApprovalRequired
	// TierDangerous tools always prompt; session auto-approve never applies.
	TierDangerous
)

func (t Tier) String() string {
	switch t {
	case TierSafe:
		return "safe"
	case TierApprovalRequired:
		return "approval_required"
	case TierDangerous:
		return "dangerous"
	default:
		return "unknown"
	}
}

var tiers = map[string]Tier{
	NameReadFile:       TierSafe,
	NameListDirectory:  TierSafe,
	NameSearchFiles:    TierSafe,
	NameWriteFile:      TierApprovalRequired,
	NameEditFile:       TierApprovalRequired,
	NameExecuteCommand: TierApprovalRequired,
	NameDeleteFile:     TierDangerous,
}

// TierOf returns the fixed tier for a tool name. Unregistered names are
// treated as dangerous.
func TierOf(name string) Tier {
	if t, ok := tiers[name]; ok {
		return t
	}
	return TierDangerous
}
