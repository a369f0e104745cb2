package bootstrap

// Core workspace file names, matching the desktop shell's skeleton list.
const (
	AgentsFile    = "AGENTS.md"
	BootstrapFile = "BOOTSTRAP.md"
	HeartbeatFile = "HEARTBEAT.md"
	IdentityFile  = "IDENTITY.md"
	MemoryFile    = "MEMORY.md"
	SoulFile      = "SOUL.md"
	ToolsFile     = "TOOLS.md"
	UserFile      = "USER.md"
)

// CoreWorkspaceDirs are the directories every workspace must have alongside
// the core files above.
var CoreWorkspaceDirs = []string{"cron", "memory", "sessions", "skills", "state"}
