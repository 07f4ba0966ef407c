package policy

import "regexp"

// builtinDenyPatterns block destructive or remote-execution commands.
// User-configured patterns are added to these, never replace them.
var builtinDenyPatterns = []*regexp.Regexp{
	// root and wildcard deletes
	regexp.MustCompile(`rm\s+(-[a-zA-Z-]+\s+)*/(\*|\s|$)`),
	regexp.MustCompile(`rm\s+(-[a-zA-Z-]+\s+)*(~|\$HOME)/?(\s|$)`),
	regexp.MustCompile(`rm\s+-rf?\s+\*`),
	regexp.MustCompile(`rm\s+-rf?\s+\.\*`),
	regexp.MustCompile(`--no-preserve-root`),
	// disk devices
	regexp.MustCompile(`mkfs`),
	regexp.MustCompile(`dd\s+if=.*of=/dev`),
	regexp.MustCompile(`>\s*/dev/sd`),
	// cloud resources
	regexp.MustCompile(`gcloud\s+.*delete`),
	regexp.MustCompile(`gcloud\s+.*destroy`),
	regexp.MustCompile(`aws\s+.*delete`),
	regexp.MustCompile(`aws\s+.*terminate`),
	regexp.MustCompile(`kubectl\s+delete`),
	regexp.MustCompile(`terraform\s+destroy`),
	// fork bomb
	regexp.MustCompile(`:\(\)\s*\{.*\|.*&.*\}`),
	// recursive permission changes on /
	regexp.MustCompile(`chmod\s+-R\s+777\s+/`),
	regexp.MustCompile(`chown\s+-R.*/`),
	// remote code piped to a shell
	regexp.MustCompile(`curl.*\|\s*(ba|z)?sh`),
	regexp.MustCompile(`wget.*\|\s*(ba|z)?sh`),
	// output floods and in-place edits that bypass edit_file
	regexp.MustCompile(`ls\s+-[^\s]*R`),
	regexp.MustCompile(`sed\s.*-i`),
}

// builtinAutoCommands are read-only commands that run without approval when
// the command equals the entry or starts with the entry followed by a space.
var builtinAutoCommands = []string{
	"ls",
	"ls -la",
	"ls -l",
	"ls -a",
	"pwd",
	"whoami",
	"date",
	"which",
	"cat",
	"head",
	"tail",
	"less",
	"more",
	"wc",
	"file",
	"stat",
	"tree",
	"find",
	"fd",
	"grep",
	"rg",
	"sed -n",
	"git status",
	"git diff",
	"git log",
	"git branch",
	"git show",
}

// builtinDangerousFiles are matched against the final path segment.
// Entries may use * and ? wildcards.
var builtinDangerousFiles = []string{
	".env",
	".env.*",
	"*.env",
	".dev.vars",
	".git-credentials",
	".netrc",
	".npmrc",
	".pypirc",
	".htpasswd",
	"credentials",
	"credentials.json",
	"secret",
	"secret.*",
	"secrets",
	"secrets.*",
	"*.pem",
	"*.key",
	"*.p12",
	"*.pfx",
	"*.kdbx",
	"id_rsa*",
	"id_dsa*",
	"id_ecdsa*",
	"id_ed25519*",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	".DS_Store",
}

// builtinDangerousDirs are matched against every path segment.
var builtinDangerousDirs = []string{
	".ssh",
	".aws",
	".gnupg",
	".kube",
	".docker",
	".azure",
	".git",
	"node_modules",
}

// forceAskPattern marks commands whose effect cannot be bounded statically.
var forceAskPattern = regexp.MustCompile("[|;&`$()]")
