package main

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = origVersion, origCommit })
	Version = "0.1.0-test"
	GitCommit = "abc123"

	out := &bytes.Buffer{}
	versionCmd.SetOut(out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })
	versionCmd.Run(versionCmd, nil)

	for _, want := range []string{"Callaudit 0.1.0-test", "Git Commit: abc123", "Go Version: " + runtime.Version()} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestVersionInfo(t *testing.T) {
	info := versionInfo()
	if info.Version != Version || info.Commit != GitCommit || info.BuildTime != BuildDate {
		t.Errorf("versionInfo() = %+v", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q", info.GoVersion)
	}
}
