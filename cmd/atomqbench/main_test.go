// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"strings"
	"testing"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/atomq"
)

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"unknown mode", []string{"-mode", "lru"}, 2},
		{"unknown flag", []string{"-threads", "4"}, 2},
		{"zero producers", []string{"-producers", "0"}, 2},
		{"negative hint", []string{"-hint", "-1"}, 2},
		{"max below hint", []string{"-hint", "64", "-max", "32"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if got := run(tt.args, &stdout, &stderr); got != tt.want {
				t.Fatalf("run(%v): got %d, want %d", tt.args, got, tt.want)
			}
			if stdout.Len() != 0 {
				t.Fatalf("run(%v): unexpected stdout %q", tt.args, stdout.String())
			}
		})
	}
}

func TestRunDeliversExactlyOnce(t *testing.T) {
	if atomq.RaceEnabled {
		t.Skip("skip: lock-free stress test with generic payloads")
	}
	for _, mode := range []string{"retain", "refcount"} {
		t.Run(mode, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			args := []string{"-producers", "3", "-consumers", "2", "-n", "5000", "-hint", "16", "-max", "64", "-mode", mode}
			if got := run(args, &stdout, &stderr); got != 0 {
				t.Fatalf("run: got exit %d, stdout:\n%s\nstderr:\n%s", got, stdout.String(), stderr.String())
			}
			if !strings.Contains(stdout.String(), "OK: every value delivered exactly once") {
				t.Fatalf("missing success line in output:\n%s", stdout.String())
			}
		})
	}
}

func TestTally(t *testing.T) {
	seen := make([]atomix.Int32, 5)
	seen[0].Store(1)
	seen[1].Store(2)
	seen[3].Store(1)
	seen[4].Store(3)

	lost, dup := tally(seen)
	if lost != 1 || dup != 2 {
		t.Fatalf("tally: got (%d lost, %d dup), want (1, 2)", lost, dup)
	}
}
