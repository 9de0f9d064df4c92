package app

import (
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{name: "引数なしはserve", args: []string{}, want: CommandServe},
		{name: "serve", args: []string{"serve"}, want: CommandServe},
		{name: "worker", args: []string{"worker"}, want: CommandWorker},
		{name: "migrate", args: []string{"migrate"}, want: CommandMigrate},
		{name: "approve", args: []string{"approve", "123456789012345678"}, want: CommandApprove},
		{name: "feature", args: []string{"feature", "123456789012345678", "false"}, want: CommandFeature},
		{name: "delete", args: []string{"delete", "123456789012345678"}, want: CommandDelete},
		{name: "healthcheck", args: []string{"healthcheck"}, want: CommandHealthcheck},
		{name: "未知のコマンドはserve", args: []string{"unknown"}, want: CommandServe},
		{name: "余分な引数は無視", args: []string{"worker", "--flag", "value"}, want: CommandWorker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCommand(tt.args); got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestCommand_IsModeration(t *testing.T) {
	tests := []struct {
		cmd  Command
		want bool
	}{
		{CommandApprove, true},
		{CommandFeature, true},
		{CommandDelete, true},
		{CommandServe, false},
		{CommandWorker, false},
		{CommandMigrate, false},
		{CommandHealthcheck, false},
	}

	for _, tt := range tests {
		if got := tt.cmd.IsModeration(); got != tt.want {
			t.Errorf("%q.IsModeration() = %v, want %v", tt.cmd, got, tt.want)
		}
	}
}
