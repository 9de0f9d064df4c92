package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/botdir/internal/model"
)

type mockModerator struct {
	approveFn     func(ctx context.Context, applicationID string) (*model.Bot, error)
	setFeaturedFn func(ctx context.Context, applicationID string, featured bool) (*model.Bot, error)
	deleteFn      func(ctx context.Context, applicationID string) error
}

func (m *mockModerator) Approve(ctx context.Context, applicationID string) (*model.Bot, error) {
	return m.approveFn(ctx, applicationID)
}

func (m *mockModerator) SetFeatured(ctx context.Context, applicationID string, featured bool) (*model.Bot, error) {
	return m.setFeaturedFn(ctx, applicationID, featured)
}

func (m *mockModerator) Delete(ctx context.Context, applicationID string) error {
	return m.deleteFn(ctx, applicationID)
}

const testAppID = "123456789012345678"

func TestRunModeration_Approve(t *testing.T) {
	m := &mockModerator{
		approveFn: func(ctx context.Context, applicationID string) (*model.Bot, error) {
			return &model.Bot{ApplicationID: applicationID, Name: "Helper", Approved: true}, nil
		},
	}
	var out bytes.Buffer

	if err := runModeration(context.Background(), m, CommandApprove, []string{testAppID}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "approved "+testAppID+" (Helper)\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRunModeration_Feature(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    bool
		wantErr bool
	}{
		{name: "フラグ省略はtrue", args: []string{testAppID}, want: true},
		{name: "falseで解除", args: []string{testAppID, "false"}, want: false},
		{name: "不正なフラグ", args: []string{testAppID, "maybe"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *bool
			m := &mockModerator{
				setFeaturedFn: func(ctx context.Context, applicationID string, featured bool) (*model.Bot, error) {
					got = &featured
					return &model.Bot{ApplicationID: applicationID, Name: "Helper", Featured: featured}, nil
				},
			}

			err := runModeration(context.Background(), m, CommandFeature, tt.args, &bytes.Buffer{})

			if tt.wantErr {
				if !errors.Is(err, errUsage) {
					t.Fatalf("error = %v, want errUsage", err)
				}
				if got != nil {
					t.Error("SetFeatured should not be called on usage error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got == nil || *got != tt.want {
				t.Errorf("featured = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunModeration_Delete_PropagatesNotFound(t *testing.T) {
	m := &mockModerator{
		deleteFn: func(ctx context.Context, applicationID string) error {
			return model.NewBotNotFoundError(applicationID)
		},
	}

	err := runModeration(context.Background(), m, CommandDelete, []string{testAppID}, &bytes.Buffer{})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeBotNotFound {
		t.Errorf("error = %v, want BOT_NOT_FOUND", err)
	}
}

func TestRunModeration_MissingApplicationID(t *testing.T) {
	for _, cmd := range []Command{CommandApprove, CommandFeature, CommandDelete} {
		t.Run(string(cmd), func(t *testing.T) {
			err := runModeration(context.Background(), &mockModerator{}, cmd, nil, &bytes.Buffer{})
			if !errors.Is(err, errUsage) {
				t.Fatalf("error = %v, want errUsage", err)
			}
			if !strings.Contains(err.Error(), string(cmd)) {
				t.Errorf("usage %q should mention %s", err.Error(), cmd)
			}
		})
	}
}
