package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDangerousFile(t *testing.T) {
	dangerous := []string{
		".env",
		".env.production",
		"config/prod.env",
		"deploy/secrets.yaml",
		"certs/server.PEM",
		"/home/me/.ssh/ID_RSA.pub",
		"package-lock.json",
		`C:\work\credentials.json`,
	}
	for _, p := range dangerous {
		assert.True(t, IsDangerousFile(p), p)
	}

	safe := []string{
		"src/index.ts",
		"README.md",
		"environment.go",
		"config/",
		"",
	}
	for _, p := range safe {
		assert.False(t, IsDangerousFile(p), p)
	}
}

func TestIsDangerousFile_Extra(t *testing.T) {
	assert.True(t, IsDangerousFile("data/app.sqlite", "*.sqlite"))
	assert.True(t, IsDangerousFile(".env", "*.sqlite"))
	assert.False(t, IsDangerousFile("data/app.db", "*.sqlite"))
}

func TestIsDangerousDir(t *testing.T) {
	assert.True(t, IsDangerousDir("node_modules/lodash/index.js"))
	assert.True(t, IsDangerousDir("a/b/.git/HEAD"))
	assert.True(t, IsDangerousDir(`C:\Users\me\.ssh\config`))
	assert.True(t, IsDangerousDir("~/.aws/credentials"))
	assert.False(t, IsDangerousDir("mynode_modules_backup/file.txt"))
	assert.False(t, IsDangerousDir("src/git/handler.go"))
	assert.True(t, IsDangerousDir("build/out.js", "build"))
}

func TestIsPathDangerous(t *testing.T) {
	assert.True(t, IsPathDangerous(".kube/config"))
	assert.True(t, IsPathDangerous("keys/deploy.key"))
	assert.False(t, IsPathDangerous("internal/policy/policy.go"))
}

func TestMergePatterns(t *testing.T) {
	base := []string{"ls", "Git Status"}
	got := MergePatterns(base, []string{"git status", "", "  ", "make", "LS"})

	assert.Equal(t, []string{"ls", "Git Status", "make"}, got)
	assert.Equal(t, []string{"ls", "Git Status"}, base)
}

func TestTokenize(t *testing.T) {
	got := tokenize(`grep -r "hello world" 'src dir' --include=*.go`)
	assert.Equal(t, []string{"grep", "-r", "hello world", "src dir", "--include=*.go"}, got)
}

func TestPathCandidate(t *testing.T) {
	assert.Equal(t, ".env", pathCandidate(">.env"))
	assert.Equal(t, ".env", pathCandidate("2>>.env"))
	assert.Equal(t, "secrets.json", pathCandidate("FILE=secrets.json"))
	assert.Equal(t, ".npmrc", pathCandidate("--userconfig=.npmrc"))
	assert.Equal(t, "main.go", pathCandidate("main.go"))
}

func TestFindDangerousPath_GluedRedirects(t *testing.T) {
	tests := []struct {
		command string
		want    string
		found   bool
	}{
		{"cat<.env", ".env", true},
		{"tee>.aws/credentials", ".aws/credentials", true},
		{"cmd 2>&1", "", false},
		{".env.sh --run", "", false},
		{"cat<notes.txt", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			got, found := defaultMatcher.findDangerousPath(tt.command)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}
