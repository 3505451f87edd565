package model

import (
	"errors"
	"testing"
)

func TestParseAction_RoundTrip(t *testing.T) {
	actions := []Action{
		Start{},
		Approve{SubmissionID: "deadbeef"},
		Reject{SubmissionID: "deadbeef"},
		RejectReason{SubmissionID: "deadbeef"},
		ToggleEdit{SubmissionID: "deadbeef", Editing: false},
		ToggleEdit{SubmissionID: "deadbeef", Editing: true},
		IndexUp{SubmissionID: "deadbeef", Index: 3},
		IndexDown{SubmissionID: "deadbeef", Index: 0},
		SetChoice{SubmissionID: "deadbeef", Index: 1},
		SetYesNo{SubmissionID: "deadbeef", Index: 2, Yes: true},
		SetYesNo{SubmissionID: "deadbeef", Index: 2, Yes: false},
		EditText{SubmissionID: "deadbeef", Index: 4},
		SubmitText{SubmissionID: "deadbeef", Index: 4},
		Begin{SessionID: "0011223344556677"},
		AnswerChoice{SessionID: "0011223344556677", Index: 0},
		AnswerYesNo{SessionID: "0011223344556677", Index: 5, Yes: true},
		AnswerYesNo{SessionID: "0011223344556677", Index: 5},
		AnswerText{SessionID: "0011223344556677", Index: 6},
		SubmitAnswerText{SessionID: "0011223344556677", Index: 6},
	}

	for _, want := range actions {
		id := EncodeAction(want)
		t.Run(id, func(t *testing.T) {
			got, err := ParseAction(id)
			if err != nil {
				t.Fatalf("ParseAction(%q) error: %v", id, err)
			}
			if got != want {
				t.Errorf("ParseAction(%q) = %#v, want %#v", id, got, want)
			}
		})
	}
}

func TestParseAction_LegacyIDs(t *testing.T) {
	tests := []struct {
		id   string
		want Action
	}{
		{"questions:::start", Start{}},
		{"questions:::approve-1a2b3c4d", Approve{SubmissionID: "1a2b3c4d"}},
		{"questions:::edit-1a2b3c4d-1", ToggleEdit{SubmissionID: "1a2b3c4d", Editing: true}},
		{"questions:::index_up-1a2b3c4d-0", IndexUp{SubmissionID: "1a2b3c4d", Index: 0}},
		{"questions:::no-1a2b3c4d-2", SetYesNo{SubmissionID: "1a2b3c4d", Index: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := ParseAction(tt.id)
			if err != nil {
				t.Fatalf("ParseAction() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseAction() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseAction_ForeignNamespace(t *testing.T) {
	for _, id := range []string{"", "roles:::add-1", "plain-button", "questionsx:::start"} {
		_, err := ParseAction(id)
		if !errors.Is(err, ErrForeignNamespace) {
			t.Errorf("ParseAction(%q) error = %v, want ErrForeignNamespace", id, err)
		}
		if IsReserved(id) {
			t.Errorf("IsReserved(%q) = true", id)
		}
	}
}

func TestParseAction_Malformed(t *testing.T) {
	ids := []string{
		"questions:::",
		"questions:::explode-abc",
		"questions:::approve",
		"questions:::approve-",
		"questions:::approve-a-b",
		"questions:::edit-abc-2",
		"questions:::index_up-abc",
		"questions:::index_up-abc-x",
		"questions:::index_up-abc--1",
		"questions:::start-extra",
		"questionnaire:::choice-abc",
		"questionnaire:::begin",
	}
	for _, id := range ids {
		t.Run(id, func(t *testing.T) {
			_, err := ParseAction(id)
			if err == nil {
				t.Fatal("expected error")
			}
			if ErrorCode(err) != ErrInvalidAction {
				t.Errorf("ErrorCode() = %q, want %q", ErrorCode(err), ErrInvalidAction)
			}
		})
	}
}

func TestIsReserved(t *testing.T) {
	if !IsReserved("questions:::start") {
		t.Error("questions namespace must be reserved")
	}
	if !IsReserved("questionnaire:::begin-ab") {
		t.Error("questionnaire namespace must be reserved")
	}
}
